package data

import (
	"path/filepath"

	"github.com/frc6135/orgbot/internal/biz/repo"
	"github.com/frc6135/orgbot/internal/infra/feishu"
)

// Repositories contains all repositories
type Repositories struct {
	Config repo.ConfigRepo
	Watch  repo.WatchRepo
	Chat   repo.ChatRepo
}

// NewRepositories creates all repositories. Config and watch databases live
// side by side under dataDir.
func NewRepositories(feishuClient *feishu.Client, dataDir string, orgAdminIDs []string) (*Repositories, error) {
	configRepo, err := NewConfigRepo(filepath.Join(dataDir, "config.db"))
	if err != nil {
		return nil, err
	}
	watchRepo, err := NewWatchRepo(filepath.Join(dataDir, "watches.db"))
	if err != nil {
		configRepo.Close()
		return nil, err
	}
	return &Repositories{
		Config: configRepo,
		Watch:  watchRepo,
		Chat:   NewChatRepo(feishuClient, orgAdminIDs),
	}, nil
}

// Close closes all repositories
func (r *Repositories) Close() {
	if r.Config != nil {
		r.Config.Close()
	}
	if r.Watch != nil {
		r.Watch.Close()
	}
}
