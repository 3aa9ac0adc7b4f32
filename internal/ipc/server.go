package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"platen/internal/api"
	"platen/internal/daemon"
	"platen/internal/jobs"
	"platen/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Platen", srv); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the socket file manually before the next start"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return logging.NewComponentLogger(s.logger, "ipc")
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC")
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Queue = api.FromHealth(status.Queue, status.Pending)
	resp.LastJobID = status.LastJobID
	resp.LastError = status.LastError
	resp.LockPath = status.LockFilePath
	resp.JobDBPath = status.JobDBPath
	resp.APIAddress = s.daemon.APIAddr()

	resp.JobStats = map[string]int{
		string(jobs.StatusQueued): status.Queue.Queued,
		"processing":              status.Queue.Processing,
		string(jobs.StatusSliced): status.Queue.Sliced,
		string(jobs.StatusFailed): status.Queue.Failed,
	}
	return nil
}

func (s *service) JobList(req JobListRequest, resp *JobListResponse) error {
	var status jobs.Status
	if req.Status != "" {
		parsed, ok := jobs.ParseStatus(req.Status)
		if !ok {
			return fmt.Errorf("unknown status %q", req.Status)
		}
		status = parsed
	}
	items, err := s.daemon.ListJobs(s.ctx, status)
	if err != nil {
		return err
	}
	resp.Jobs = api.FromJobs(items)
	return nil
}

func (s *service) JobDescribe(req JobDescribeRequest, resp *JobDescribeResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid job id %d", req.ID)
	}
	job, err := s.daemon.GetJob(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Job = api.FromJob(job)
	return nil
}

func (s *service) JobAdd(req JobAddRequest, resp *JobAddResponse) error {
	tuple := jobs.Tuple{
		ModelID:    req.ModelID,
		MaterialID: req.MaterialID,
		ProcessID:  req.ProcessID,
		MachineID:  req.MachineID,
	}
	job, created, err := s.daemon.AddJob(s.ctx, tuple)
	if err != nil {
		return err
	}
	resp.Job = api.FromJob(job)
	resp.Created = created
	if created {
		s.log().Info("job queued via IPC", logging.Int64("job_id", job.ID))
	}
	return nil
}

func (s *service) JobRequeue(req JobRequeueRequest, resp *JobRequeueResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid job id %d", req.ID)
	}
	job, err := s.daemon.RequeueJob(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Job = api.FromJob(job)
	s.log().Info("job requeued via IPC", logging.Int64("job_id", job.ID))
	return nil
}

func (s *service) QueueRetry(req QueueRetryRequest, resp *QueueRetryResponse) error {
	s.log().Debug("queue retry requested", logging.Int("job_count", len(req.IDs)))
	updated, err := s.daemon.RetryFailed(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.log().Info("failed jobs requeued", logging.Int64("updated_count", updated))
	return nil
}

func (s *service) QueueHealth(_ QueueHealthRequest, resp *QueueHealthResponse) error {
	health, pending, err := s.daemon.QueueHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.Health = api.FromHealth(health, pending)
	return nil
}

func (s *service) QuoteResolve(req QuoteResolveRequest, resp *QuoteResolveResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid quote id %d", req.ID)
	}
	quote, err := s.daemon.ResolveQuote(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Quote = api.FromQuote(quote)
	s.log().Info("quote resolved via IPC", logging.Int64("quote_id", quote.ID))
	return nil
}

func (s *service) QuoteDescribe(req QuoteDescribeRequest, resp *QuoteDescribeResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid quote id %d", req.ID)
	}
	quote, err := s.daemon.GetQuote(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if quote == nil {
		return fmt.Errorf("quote %d not found", req.ID)
	}
	resp.Quote = api.FromQuote(quote)
	return nil
}
