package lifecycle

import "github.com/robfig/cron/v3"

// SetRemoveFunc replaces the function the manager uses to delete files
func (manager *Manager) SetRemoveFunc(remove func(path string) (bool, error)) {
	manager.remove = remove
}

// RemoveFile is the default deletion used by the manager
var RemoveFile = removeFile

// SchedulerLogger is the logger given to the sweep scheduler
var SchedulerLogger cron.Logger = cronLogger{}
