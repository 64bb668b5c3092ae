// Package jobs runs account synchronisation in the background on asynq.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue every ledger task goes to.
	QueueDefault = "default"
	// TaskAccountSync syncs one automatic account.
	TaskAccountSync = "account:sync"
	// TaskSyncAll fans out one TaskAccountSync per automatic account.
	TaskSyncAll = "account:sync-all"
)

// AccountSyncPayload identifies the account to sync.
type AccountSyncPayload struct {
	AccountID string `json:"accountId"`
}

// NewAccountSyncTask builds a TaskAccountSync task.
func NewAccountSyncTask(accountID string) (*asynq.Task, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account sync task: empty account id")
	}
	data, err := json.Marshal(AccountSyncPayload{AccountID: accountID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccountSync, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewSyncAllTask builds the cron-driven fan-out task.
func NewSyncAllTask() *asynq.Task {
	return asynq.NewTask(TaskSyncAll, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}
