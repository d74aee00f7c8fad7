package cluster

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/enkryptcom/enkrypt-backend/pkg/httpserver"
	"github.com/enkryptcom/enkrypt-backend/pkg/log"
)

// inheritedListenerFD is the file descriptor the primary dup2's the shared
// listening socket onto before exec'ing a worker (fd 0/1/2 are stdin,
// stdout, stderr; the listener rides in as fd 3).
const inheritedListenerFD = 3

// WorkerEnvGeneration names the environment variable the primary sets so the worker
// knows its generation id, surfaced in logs and metrics labels.
const WorkerEnvGeneration = "ENKRYPT_WORKER_GENERATION"

// RunWorker is the entrypoint a worker process subcommand calls: it accepts
// the inherited shared listener, serves handler on it, signals READY to the
// primary over stdout, ignores SIGINT, and honors BEGIN_GRACEFUL_SHUTDOWN /
// BEGIN_FORCEFUL_SHUTDOWN messages read from stdin.
func RunWorker(handler http.Handler, cfg httpserver.Config) error {
	signal.Ignore(syscall.SIGINT)

	workerID := os.Getenv("ENKRYPT_WORKER_ID")
	generation := os.Getenv(WorkerEnvGeneration)
	logger := log.WithWorkerID(workerID, atoiOrZero(generation))
	logger.Info().Msg("worker starting")

	f := os.NewFile(uintptr(inheritedListenerFD), "listener")
	ln, err := net.FileListener(f)
	if err != nil {
		return err
	}
	_ = f.Close()

	lc := httpserver.New("", handler, cfg)

	out := newIPCWriter(os.Stdout)
	in := newIPCReader(os.Stdin)

	if err := lc.StartOn(ln); err != nil {
		return err
	}
	if err := out.Send(Message{Type: MsgReady}); err != nil {
		logger.Warn().Err(err).Msg("failed to signal ready to primary")
	}

	for {
		msg, err := in.Next()
		if err != nil {
			logger.Warn().Err(err).Msg("primary pipe closed, shutting down")
			return lc.Shutdown()
		}
		switch msg.Type {
		case MsgBeginGracefulShutdown:
			logger.Info().Msg("received graceful shutdown request")
			// Keep reading so a later forceful request can still escalate
			// the drain already in progress.
			go func() {
				for {
					next, err := in.Next()
					if err != nil {
						return
					}
					if next.Type == MsgBeginForcefulShutdown {
						logger.Info().Msg("received forceful shutdown request")
						lc.Accelerate()
						return
					}
				}
			}()
			return lc.Shutdown()
		case MsgBeginForcefulShutdown:
			logger.Info().Msg("received forceful shutdown request")
			lc.Accelerate()
			return lc.Shutdown()
		}
	}
}

func atoiOrZero(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
