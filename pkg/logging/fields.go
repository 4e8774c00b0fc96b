package logging

import "time"

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain fields.

func Component(name string) Field {
	return String("component", name)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Engine(name string) Field {
	return String("engine", name)
}

func Vertices(n int) Field {
	return Int("vertices", n)
}

func Arcs(n int) Field {
	return Int("arcs", n)
}

func Parts(n int) Field {
	return Int("nparts", n)
}

func Seed(seed int) Field {
	return Int("seed", seed)
}

func EdgeCut(cut int) Field {
	return Int("edgecut", cut)
}

func RequestID(id string) Field {
	return String("request_id", id)
}

func JobID(id string) Field {
	return String("job_id", id)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Path(p string) Field {
	return String("path", p)
}
