package obs

import (
	"time"

	"github.com/yanun0323/logs"
)

// TimeIt runs fn and logs how long it took under name.
func TimeIt(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	logs.Infof("[%s] executed in %.4f seconds", name, time.Since(start).Seconds())
	return err
}
