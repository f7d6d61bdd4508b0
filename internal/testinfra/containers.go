//go:build integration

package testinfra

import (
	"context"
	"net"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresImage  = "postgres:16-alpine"
	RedisImage     = "redis:7-alpine"
	EmulatorsImage = "gcr.io/google.com/cloudsdktool/google-cloud-cli:emulators"

	PostgresUser     = "hoodskool"
	PostgresPassword = "hoodskool"
	PostgresDB       = "hoodskool_test"
)

// Endpoint is where a started container can be reached from the test process
type Endpoint struct {
	Host string
	Port string
}

// Addr returns host:port
func (e Endpoint) Addr() string {
	return e.Host + ":" + e.Port
}

// SkipIfNoDocker skips the test if Docker is not available
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// StartPostgres runs a PostgreSQL container for the duration of the test
func StartPostgres(t *testing.T) Endpoint {
	t.Helper()

	return start(t, testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     PostgresUser,
			"POSTGRES_PASSWORD": PostgresPassword,
			"POSTGRES_DB":       PostgresDB,
		},
		// The server restarts once after init, so the line appears twice
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(90 * time.Second),
	})
}

// StartRedis runs a Redis container for the duration of the test
func StartRedis(t *testing.T) Endpoint {
	t.Helper()

	return start(t, testcontainers.ContainerRequest{
		Image:        RedisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Ready to accept connections"),
			wait.ForListeningPort("6379/tcp"),
		).WithStartupTimeout(60 * time.Second),
	})
}

// StartFirestoreEmulator runs the Firestore emulator and points the
// Firestore client at it through FIRESTORE_EMULATOR_HOST.
func StartFirestoreEmulator(t *testing.T) Endpoint {
	t.Helper()

	endpoint := start(t, testcontainers.ContainerRequest{
		Image:        EmulatorsImage,
		ExposedPorts: []string{"8080/tcp"},
		Cmd: []string{
			"gcloud", "beta", "emulators", "firestore", "start",
			"--host-port=0.0.0.0:8080",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("Dev App Server is now running"),
			wait.ForListeningPort("8080/tcp"),
		).WithStartupTimeout(3 * time.Minute),
	})

	t.Setenv("FIRESTORE_EMULATOR_HOST", endpoint.Addr())
	return endpoint
}

func start(t *testing.T, req testcontainers.ContainerRequest) Endpoint {
	t.Helper()
	SkipIfNoDocker(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s container: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate %s container: %v", req.Image, err)
		}
	})

	// Every container here exposes a single port
	addr, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("resolve %s endpoint: %v", req.Image, err)
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("parse %s endpoint %q: %v", req.Image, addr, err)
	}
	return Endpoint{Host: host, Port: port}
}

