package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"wiretap/internal/config"
	"wiretap/internal/ipc"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckGateway verifies that the gateway serving hostname accepts a session
// with the configured client version. It uses a 5-second timeout and a single
// attempt.
func CheckGateway(ctx context.Context, cfg *config.Config, hostname string) Result {
	const name = "Gateway"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	address := cfg.ServerAddress(hostname)
	client, err := ipc.Dial(checkCtx, address, 5*time.Second)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s unreachable (%v)", address, err)}
	}
	defer client.Close()

	if _, err := client.Hello(checkCtx, cfg.Client.Version, hostname); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s refused session (%v)", address, err)}
	}
	stats, err := client.Stats(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s stats failed (%v)", address, err)}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s (version %s, %d nodes)", address, cfg.Client.Version, stats.Total),
	}
}
