package worker

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"deposit-collector/internal/worker/tasks"
	"deposit-collector/pkg/logger"
)

// Server runs collection jobs from the asynq queues.
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewServer(addr string, password string, db int, concurrency int, runner tasks.Runner) *Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
			DB:       db,
		},
		asynq.Config{
			// each job holds a row lock and a database connection while the node answers
			Concurrency: concurrency,
			Queues: map[string]int{
				"critical": 6, // collection jobs
				"default":  3,
				"low":      1,
			},
			Logger: logger.NewAsynqLogger(),
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeAddressCollect, tasks.NewCollectionHandler(runner))

	return &Server{
		server: srv,
		mux:    mux,
	}
}

// Start runs the server in the background.
func (s *Server) Start() {
	logger.Info("worker server starting")
	go func() {
		if err := s.server.Run(s.mux); err != nil {
			logger.Fatal("worker server failed", zap.Error(err))
		}
	}()
}

func (s *Server) Stop() {
	s.server.Stop()
	s.server.Shutdown()
}
