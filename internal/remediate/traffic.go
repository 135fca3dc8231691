// Package remediate restarts the remote traffic module over SSH when the
// as-run feed has been stalled past the configured threshold.
package remediate

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/ssh"
)

// Remediator is the optional self-healing hook invoked by the poll cycle.
type Remediator interface {
	// RestartRemoteService restarts the traffic module. A nil error means
	// the restart commands all completed; command failure is reported as
	// an error distinct from connection failure.
	RestartRemoteService(ctx context.Context) error
}

// Config holds SSH settings for the traffic host.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration

	// ServiceName is the systemd/service unit to bounce.
	ServiceName string
}

// TrafficControl implements Remediator against the traffic automation host.
type TrafficControl struct {
	cfg Config
	log *slog.Logger
}

// NewTrafficControl creates a TrafficControl.
func NewTrafficControl(cfg Config, log *slog.Logger) *TrafficControl {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "traffic-module"
	}
	if log == nil {
		log = slog.Default()
	}
	return &TrafficControl{cfg: cfg, log: log.With("component", "remediate")}
}

// RestartRemoteService stops and starts the traffic module, with a settle
// pause between, mirroring the operator runbook.
func (t *TrafficControl) RestartRemoteService(ctx context.Context) error {
	client, err := t.dial()
	if err != nil {
		return fmt.Errorf("connecting to traffic host: %w", err)
	}
	defer client.Close()

	commands := []string{
		fmt.Sprintf("sudo service %s stop", t.cfg.ServiceName),
		"sleep 5",
		fmt.Sprintf("sudo service %s start", t.cfg.ServiceName),
	}
	for _, cmd := range commands {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.run(client, cmd); err != nil {
			return fmt.Errorf("running %q: %w", cmd, err)
		}
		t.log.Info("remediation command completed", "command", cmd)
	}

	t.log.Info("traffic module restart completed")
	return nil
}

// ServiceStatus returns the traffic module's service status output.
func (t *TrafficControl) ServiceStatus(ctx context.Context) (string, error) {
	client, err := t.dial()
	if err != nil {
		return "", fmt.Errorf("connecting to traffic host: %w", err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	out, err := session.CombinedOutput(fmt.Sprintf("sudo service %s status", t.cfg.ServiceName))
	if err != nil {
		return "", fmt.Errorf("querying service status: %w", err)
	}
	return string(bytes.TrimSpace(out)), nil
}

func (t *TrafficControl) dial() (*ssh.Client, error) {
	return ssh.Dial("tcp", fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port), &ssh.ClientConfig{
		User: t.cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(t.cfg.Password),
		},
		// Same closed-network trade-off as the SFTP transport.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         t.cfg.Timeout,
	})
}

func (t *TrafficControl) run(client *ssh.Client, cmd string) error {
	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	var stderr bytes.Buffer
	session.Stderr = &stderr
	if err := session.Run(cmd); err != nil {
		return fmt.Errorf("%w (stderr: %s)", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
