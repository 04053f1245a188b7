// +build !windows

package binutil

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sevlyar/go-daemon"
	"github.com/xiaonanln/tilespace/engine/gwlog"
)

const daemonUmask = 027

// Daemonize restarts the process in background with its pid written to pidFile (none if empty).
//
// The parent process exits once the child is started. In the child the returned context must be
// released on exit to unlock the pid file.
func Daemonize(pidFile string) (*daemon.Context, error) {
	dctx := &daemon.Context{
		PidFileName: pidFile,
		PidFilePerm: daemon.FILE_PERM,
		Umask:       daemonUmask,
	}

	if pidFile != "" && !daemon.WasReborn() {
		if p, err := dctx.Search(); err == nil && p != nil && p.Signal(syscall.Signal(0)) == nil {
			return nil, errors.Errorf("already running in daemon mode: pid %d in %s", p.Pid, pidFile)
		}
	}

	child, err := dctx.Reborn()
	if err != nil {
		return nil, errors.Wrap(err, "daemonize")
	}
	if child != nil {
		gwlog.Infof("daemon started: pid %d", child.Pid)
		gwlog.Sync()
		os.Exit(0)
	}
	return dctx, nil
}
