package data

import (
	"nagadaibot/internal/biz/repo"
	"nagadaibot/internal/infra/feishu"
)

// Repositories contains all repositories
type Repositories struct {
	Reminder repo.ReminderRepo
	Message  repo.MessageRepo
}

// NewRepositories creates all repositories
func NewRepositories(feishuClient *feishu.Client, reminderDBPath string) (*Repositories, error) {
	reminderRepo, err := NewReminderRepo(reminderDBPath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Reminder: reminderRepo,
		Message:  NewFeishuRepo(feishuClient),
	}, nil
}

// Close closes all repositories
func (r *Repositories) Close() error {
	return r.Reminder.Close()
}
