package cluster

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/enkryptcom/enkrypt-backend/pkg/log"
)

// workerState is the process's life-stage as observed by the primary.
type workerState int

const (
	workerStarting workerState = iota
	workerListening
	workerShuttingDown
	workerExited
)

// workerProc tracks one spawned worker process and its IPC pipes.
type workerProc struct {
	id         string
	generation int

	cmd *exec.Cmd
	out *ipcWriter // primary -> worker (worker's stdin)
	in  *ipcReader // worker -> primary (worker's stdout)

	mu              sync.Mutex
	state           workerState
	startedAt       time.Time
	lastShutdownMsg *Message
	exitErr         error
}

// spawnWorker execs a new worker process, passing ln as fd 3 so the
// worker can accept on the shared listener without rebinding it.
func spawnWorker(ln *os.File, generation int, selfExe string, args []string) (*workerProc, error) {
	workerID := uuid.New().String()

	cmd := exec.Command(selfExe, args...)
	cmd.ExtraFiles = []*os.File{ln}
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("ENKRYPT_WORKER_ID=%s", workerID),
		fmt.Sprintf("%s=%d", WorkerEnvGeneration, generation),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &workerProc{
		id:         workerID,
		generation: generation,
		cmd:        cmd,
		out:        newIPCWriter(stdin),
		in:         newIPCReader(stdout),
		state:      workerStarting,
		startedAt:  time.Now(),
	}, nil
}

func (w *workerProc) setState(s workerState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *workerProc) getState() workerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// sendShutdown delivers a shutdown message and remembers it so a late READY
// can be answered with the same message.
func (w *workerProc) sendShutdown(msg Message) error {
	w.mu.Lock()
	w.lastShutdownMsg = &msg
	w.mu.Unlock()
	w.setState(workerShuttingDown)
	return w.out.Send(msg)
}

// readLoop consumes messages from the worker until its stdout closes,
// dispatching READY transitions and re-sending any shutdown already in
// flight when the worker reports ready after the primary began stopping it.
func (w *workerProc) readLoop(onReady func(*workerProc)) {
	for {
		msg, err := w.in.Next()
		if err != nil {
			return
		}
		if msg.Type == MsgReady {
			w.setState(workerListening)
			w.mu.Lock()
			pending := w.lastShutdownMsg
			w.mu.Unlock()
			if pending != nil {
				_ = w.out.Send(*pending)
				continue
			}
			if onReady != nil {
				onReady(w)
			}
		}
	}
}

func (w *workerProc) signal(sig syscall.Signal) error {
	if w.cmd.Process == nil {
		return nil
	}
	return w.cmd.Process.Signal(sig)
}

func (w *workerProc) kill() error {
	if w.cmd.Process == nil {
		return nil
	}
	return w.cmd.Process.Kill()
}

func (w *workerProc) wait() error {
	err := w.cmd.Wait()
	w.mu.Lock()
	w.exitErr = err
	w.state = workerExited
	w.mu.Unlock()
	if err != nil {
		log.Logger.Warn().Str("worker_id", w.id).Err(err).Msg("worker process exited with error")
	}
	return err
}
