package transport

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/rep"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-graphpart/pkg/auth"
	"github.com/dd0wney/cluso-graphpart/pkg/logging"
	"github.com/dd0wney/cluso-graphpart/pkg/metrics"
	"github.com/dd0wney/cluso-graphpart/pkg/server"
	"github.com/dd0wney/cluso-graphpart/pkg/validation"
)

// pollInterval bounds how long a worker blocks in Recv before checking
// for shutdown.
const pollInterval = time.Second

// Handler runs one decoded dispatch request. *server.Server implements it.
type Handler interface {
	Handle(ctx context.Context, req *validation.DispatchRequest, withQuality bool) (*server.DispatchResponse, *server.ErrorResponse)
}

// Config wires the listener's collaborators.
type Config struct {
	// Workers is the number of requests answered concurrently. Zero means
	// one per CPU.
	Workers int
	// MaxFrameBytes bounds the decompressed request size. Zero means
	// DefaultMaxFrameBytes.
	MaxFrameBytes int64
	Logger        logging.Logger
	Metrics       *metrics.Registry
	Auth          *auth.Authenticator
}

// Server answers Requests on a REP socket.
type Server struct {
	sock     mangos.Socket
	handler  Handler
	workers  int
	maxFrame int64
	logger   logging.Logger
	metrics  *metrics.Registry
	auth     *auth.Authenticator

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewServer opens a REP socket. Call Listen, then Serve.
func NewServer(h Handler, cfg Config) (*Server, error) {
	sock, err := rep.NewSocket()
	if err != nil {
		return nil, err
	}
	s := &Server{
		sock:     sock,
		handler:  h,
		workers:  cfg.Workers,
		maxFrame: cfg.MaxFrameBytes,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		auth:     cfg.Auth,
	}
	if s.workers <= 0 {
		s.workers = runtime.NumCPU()
	}
	if s.maxFrame <= 0 {
		s.maxFrame = DefaultMaxFrameBytes
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	s.logger = s.logger.With(logging.Component("transport"))
	return s, nil
}

// Listen binds addr, for example "tcp://0.0.0.0:40899".
func (s *Server) Listen(addr string) error {
	if err := s.sock.Listen(addr); err != nil {
		return err
	}
	s.logger.Info("transport listening", logging.String("addr", addr), logging.Int("workers", s.workers))
	return nil
}

// Serve answers requests until ctx is cancelled, then closes the socket
// and waits for in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	for i := 0; i < s.workers; i++ {
		mctx, err := s.sock.OpenContext()
		if err != nil {
			s.Close()
			s.wg.Wait()
			return err
		}
		s.wg.Add(1)
		go s.worker(ctx, mctx)
	}
	<-ctx.Done()
	s.Close()
	s.wg.Wait()
	return nil
}

// Close closes the socket. Workers exit on their next receive.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.sock.Close()
	})
	return err
}

func (s *Server) worker(ctx context.Context, mctx mangos.Context) {
	defer s.wg.Done()
	defer mctx.Close()

	if err := mctx.SetOption(mangos.OptionRecvDeadline, pollInterval); err != nil {
		s.logger.Warn("set receive deadline", logging.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := mctx.Recv()
		if err != nil {
			if errors.Is(err, mangos.ErrRecvTimeout) {
				continue
			}
			if errors.Is(err, mangos.ErrClosed) {
				return
			}
			s.logger.Warn("transport receive failed", logging.Error(err))
			continue
		}

		reply := s.answer(ctx, msg)
		if err := mctx.Send(reply); err != nil && !errors.Is(err, mangos.ErrClosed) {
			s.logger.Warn("transport send failed", logging.Error(err))
		}
	}
}

// answer turns one request frame into one reply frame.
func (s *Server) answer(ctx context.Context, frame []byte) []byte {
	start := time.Now()
	var req Request
	resp := s.serve(ctx, frame, &req)

	code := http.StatusOK
	if resp.Error != nil {
		code = resp.Error.Code
	}
	if s.metrics != nil {
		s.metrics.RecordTransportMessage(strconv.Itoa(code))
	}
	s.logger.Info("transport request",
		logging.RequestID(resp.ID),
		logging.Int("status", code),
		logging.Latency(time.Since(start)))

	out, err := encodeFrame(resp)
	if err != nil {
		s.logger.Error("encode reply", logging.Error(err))
		out, _ = encodeFrame(Response{ID: resp.ID, Error: failure(http.StatusInternalServerError, "internal server error")})
	}
	return out
}

func (s *Server) serve(ctx context.Context, frame []byte, req *Request) (resp *Response) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("panic in transport handler", logging.RequestID(req.ID), logging.Any("panic", p))
			resp = &Response{ID: req.ID, Error: failure(http.StatusInternalServerError, "internal server error")}
		}
	}()

	if err := decodeFrame(frame, req, s.maxFrame); err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, ErrFrameTooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		return &Response{ID: uuid.NewString(), Error: failure(code, err.Error())}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ctx = server.WithRequestID(ctx, req.ID)

	var authorization string
	if req.Token != "" {
		authorization = "Bearer " + req.Token
	}
	if _, err := s.auth.Authenticate(ctx, authorization, req.APIKey); err != nil {
		s.logger.Warn("authentication failed", logging.RequestID(req.ID), logging.Error(err))
		return &Response{ID: req.ID, Error: failure(http.StatusUnauthorized, "authentication required")}
	}
	if req.Dispatch == nil {
		return &Response{ID: req.ID, Error: failure(http.StatusBadRequest, "dispatch is required")}
	}

	result, fail := s.handler.Handle(ctx, req.Dispatch, req.Quality)
	if fail != nil {
		return &Response{ID: req.ID, Error: fail}
	}
	result.RequestID = req.ID
	return &Response{ID: req.ID, Result: result}
}

func failure(code int, message string) *server.ErrorResponse {
	return &server.ErrorResponse{Error: http.StatusText(code), Message: message, Code: code}
}
