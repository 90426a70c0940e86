package e2e_test

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	binaryPath     string
	binaryBuildErr error
	binaryOnce     sync.Once
	sharedTempDir  string
)

// TestMain sets up and tears down shared test resources.
func TestMain(m *testing.M) {
	var err error
	sharedTempDir, err = os.MkdirTemp("", "hearth-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = os.RemoveAll(sharedTempDir)

	os.Exit(code)
}

// ServerConfig holds configuration for starting the hearth server.
type ServerConfig struct {
	Port            int
	Root            string
	IdleTimeout     time.Duration
	StreamThreshold int64
}

// buildBinary compiles the hearth binary once per test run.
// Returns the path to the compiled binary.
func buildBinary(t *testing.T) string {
	t.Helper()

	binaryOnce.Do(func() {
		binaryPath = filepath.Join(sharedTempDir, "hearth")

		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/hearth")
		cmd.Dir = getProjectRoot(t)
		output, err := cmd.CombinedOutput()
		if err != nil {
			binaryBuildErr = fmt.Errorf("build binary: %w\nOutput: %s", err, output)
			return
		}
	})

	if binaryBuildErr != nil {
		t.Fatalf("failed to build binary: %v", binaryBuildErr)
	}

	return binaryPath
}

// getProjectRoot returns the root directory of the hearth module.
func getProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// createConfigFile creates a temporary config file for the server.
// Returns the path to the config file.
func createConfigFile(t *testing.T, cfg ServerConfig) string {
	t.Helper()

	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Second
	}
	if cfg.StreamThreshold == 0 {
		cfg.StreamThreshold = 1_000_000
	}

	content := fmt.Sprintf(`server:
  host: 127.0.0.1
  port: %d
  idle_timeout: %s

storage:
  root: "%s"

transfer:
  stream_threshold: %d

routes:
  - path: /
    handler: welcome
  - path: /hello
    handler: hello
  - path: /time
    handler: time
  - path: /healthz
    handler: health

log:
  level: error
`, cfg.Port, cfg.IdleTimeout, cfg.Root, cfg.StreamThreshold)

	configPath := filepath.Join(t.TempDir(), "hearth.yaml")
	err := os.WriteFile(configPath, []byte(content), 0o600)
	require.NoError(t, err, "write config file")

	return configPath
}

// startServer starts the hearth binary with the given configuration.
// Returns the host:port address and a cleanup function that must be called
// to stop the server.
func startServer(t *testing.T, cfg ServerConfig) (string, func()) {
	t.Helper()

	binary := buildBinary(t)
	configPath := createConfigFile(t, cfg)

	cmd := exec.Command(binary, "serve", "--config", configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Start()
	require.NoError(t, err, "start server")

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	waitForServer(t, addr, 10*time.Second)

	cleanup := func() {
		if cmd.Process != nil {
			_ = cmd.Process.Signal(syscall.SIGTERM)
			_ = cmd.Wait()
		}
	}

	return addr, cleanup
}

// waitForServer polls the listener until it accepts or times out.
func waitForServer(t *testing.T, addr string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			_ = conn.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("server failed to start within %v", timeout)
}

// getOpenPort finds an available TCP port.
func getOpenPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "find open port")

	port := l.Addr().(*net.TCPAddr).Port

	err = l.Close()
	require.NoError(t, err, "close port")

	return port
}

// rawConn is a client connection that writes requests verbatim.
type rawConn struct {
	net.Conn
	r *bufio.Reader
}

func dialRaw(t *testing.T, addr string) *rawConn {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err, "dial server")
	t.Cleanup(func() { _ = conn.Close() })

	return &rawConn{Conn: conn, r: bufio.NewReader(conn)}
}

// roundTrip writes raw and reads one response for a request with the given method.
func (c *rawConn) roundTrip(t *testing.T, method, raw string) *http.Response {
	t.Helper()

	_, err := c.Write([]byte(raw))
	require.NoError(t, err, "write request")

	return c.readResponse(t, method)
}

func (c *rawConn) readResponse(t *testing.T, method string) *http.Response {
	t.Helper()

	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	resp, err := http.ReadResponse(c.r, &http.Request{Method: method})
	require.NoError(t, err, "read response")
	return resp
}
