package repository

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/DeploymentBot3000/DeploymentBot/pkg/util"
)

// Account is an operator login for the admin API. Password is a bcrypt
// hash.
type Account struct {
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

func (a *Account) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	a.Password = string(hash)

	return nil
}

func (a *Account) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password)) == nil
}

// ACLFile is the on-disk schema.
type ACLFile struct {
	Admins   []string   `yaml:"admins"`
	Hosts    []string   `yaml:"hosts"`
	Accounts []*Account `yaml:"accounts"`
}

func ReadACLFile(path string) (*ACLFile, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	acl := new(ACLFile)

	if err := yaml.Unmarshal(dat, acl); err != nil {
		return nil, err
	}

	return acl, nil
}

func WriteACLFile(path string, acl *ACLFile) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer f.Close()

	return yaml.NewEncoder(f).Encode(acl)
}

// ACLFileRepository keeps the admin and host rosters in a yaml file and
// reloads it when the file changes on disk.
type ACLFileRepository struct {
	aclFile string
	logger  *slog.Logger

	watcher *fsnotify.Watcher

	mx       sync.RWMutex
	admins   util.StringSet
	hosts    util.StringSet
	accounts map[string]*Account
}

func NewACLFileRepo(aclFile string) *ACLFileRepository {
	r := &ACLFileRepository{
		logger:   slog.Default().With("logger", "acl"),
		aclFile:  aclFile,
		admins:   util.NewStringSet(),
		hosts:    util.NewStringSet(),
		accounts: make(map[string]*Account),
	}

	if err := r.load(); err != nil {
		r.logger.Error("error loading acl file", slog.Any("error", err))
	}

	return r
}

func (r *ACLFileRepository) load() error {
	r.mx.Lock()
	defer r.mx.Unlock()

	if _, err := os.Lstat(r.aclFile); os.IsNotExist(err) {
		// create empty file
		f, err := os.Create(r.aclFile)
		if err != nil {
			return err
		}

		return f.Close()
	}

	acl, err := ReadACLFile(r.aclFile)
	if err != nil {
		return err
	}

	r.admins = util.NewStringSet(acl.Admins...)
	r.hosts = util.NewStringSet(acl.Hosts...)
	r.accounts = make(map[string]*Account)

	for _, a := range acl.Accounts {
		if a.Login != "" {
			r.accounts[a.Login] = a
		}
	}

	return nil
}

func (r *ACLFileRepository) Start() error {
	var err error
	r.watcher, err = fsnotify.NewWatcher()

	if err != nil {
		return err
	}

	if err := r.watcher.Add(r.aclFile); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case event, ok := <-r.watcher.Events:
				if !ok {
					return
				}

				r.logger.Debug(fmt.Sprintf("event: %v", event))

				if event.Has(fsnotify.Write) && event.Name == r.aclFile {
					r.logger.Info("acl file is modified, reloading")

					if err := r.load(); err != nil {
						r.logger.Error("error", slog.Any("error", err))
					}
				}
			case err, ok := <-r.watcher.Errors:
				if !ok {
					return
				}

				r.logger.Error("error", slog.Any("error", err))
			}
		}
	}()

	return nil
}

func (r *ACLFileRepository) Stop() {
	if r.watcher != nil {
		_ = r.watcher.Close()
	}
}

// IsAdmin reports whether the user may run administrative operations on
// deployments and the queue.
func (r *ACLFileRepository) IsAdmin(userID string) bool {
	r.mx.RLock()
	defer r.mx.RUnlock()

	return r.admins.Has(userID)
}

// CanHost reports whether the user may create deployments or queue as a
// host. Admins can always host. An empty hosts list opens hosting to
// everybody.
func (r *ACLFileRepository) CanHost(userID string) bool {
	r.mx.RLock()
	defer r.mx.RUnlock()

	if r.admins.Has(userID) {
		return true
	}

	if r.hosts.Empty() {
		return true
	}

	return r.hosts.Has(userID)
}

// CheckAuth validates an admin API login against its bcrypt hash.
func (r *ACLFileRepository) CheckAuth(login, password string) bool {
	r.mx.RLock()
	defer r.mx.RUnlock()

	if a, ok := r.accounts[login]; ok && !a.Disabled {
		return a.CheckPassword(password)
	}

	return false
}
