// +build windows

package binutil

import "github.com/xiaonanln/tilespace/engine/gwlog"

type nopRelease int

func (nopRelease) Release() error {
	return nil
}

// Daemonize is not supported on windows, the process keeps running in foreground
func Daemonize(pidFile string) (nopRelease, error) {
	gwlog.Warnf("can not run in daemon mode in windows, -d ignored")
	return nopRelease(0), nil
}
