package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"crosspost/internal/adapters/database"
	"crosspost/internal/core/platform"
	postapp "crosspost/internal/core/post/service"
	profileEntity "crosspost/internal/core/profile"
	"crosspost/internal/core/scheduledpost"
	"crosspost/internal/core/user"
	publisherPort "crosspost/internal/ports/publisher"

	"github.com/glebarez/sqlite"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakePublisher رفتار هر فراخوانی با fn تعیین می‌شود
type fakePublisher struct {
	pl platform.Platform
	fn func(ctx context.Context, req publisherPort.Request) (string, error)

	mu    sync.Mutex
	calls int
}

func (f *fakePublisher) Platform() platform.Platform { return f.pl }

func (f *fakePublisher) Publish(ctx context.Context, req publisherPort.Request) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn == nil {
		return "remote-" + string(f.pl), nil
	}
	return f.fn(ctx, req)
}

func (f *fakePublisher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func succeed(pl platform.Platform) *fakePublisher { return &fakePublisher{pl: pl} }

func failWith(pl platform.Platform, kind publisherPort.Kind, msg string) *fakePublisher {
	return &fakePublisher{pl: pl, fn: func(context.Context, publisherPort.Request) (string, error) {
		return "", publisherPort.NewError(pl, kind, msg)
	}}
}

type fakeRegistry map[platform.Platform]publisherPort.Publisher

func (r fakeRegistry) Get(p platform.Platform) (publisherPort.Publisher, bool) {
	pub, ok := r[p]
	return pub, ok
}

func registryOf(pubs ...*fakePublisher) fakeRegistry {
	r := fakeRegistry{}
	for _, p := range pubs {
		r[p.pl] = p
	}
	return r
}

type fixture struct {
	db       *gorm.DB
	posts    *database.ScheduledPostRepositoryDatabase
	profiles *database.ProfileRepositoryDatabase
	triggers *database.TriggerStoreDatabase
	ledger   *postapp.PostService
	exec     *PostExecutor
	owner    uuid.UUID
	now      time.Time
}

func newFixture(t *testing.T, reg publisherPort.Registry) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:       db,
		posts:    database.NewScheduledPostRepositoryDatabase(db),
		profiles: database.NewProfileRepositoryDatabase(db),
		triggers: database.NewTriggerStoreDatabase(db, "test-node", time.Minute),
		owner:    uuid.Must(uuid.NewV4()),
		now:      time.Now().UTC().Truncate(time.Millisecond),
	}
	f.ledger = postapp.NewPostService(database.NewPostRepositoryDatabase(db), nil, f.profiles, reg, time.Second, zap.NewNop())

	if _, err := database.NewUserRepositoryDatabase(db).Create(context.Background(), &user.User{
		ID: f.owner, Name: "Test", Family: "User", Username: "owner-" + f.owner.String()[:8],
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	f.exec = NewPostExecutor(f.posts, f.profiles, reg, f.triggers, f.ledger,
		Backoff{Base: time.Minute, Max: time.Hour}, time.Second, 4, zap.NewNop())
	f.exec.Now = func() time.Time { return f.now }
	return f
}

func (f *fixture) connect(t *testing.T, pls ...platform.Platform) {
	t.Helper()
	for _, pl := range pls {
		if _, err := f.profiles.Upsert(context.Background(), &profileEntity.Profile{
			ID:          uuid.Must(uuid.NewV4()),
			UserID:      f.owner,
			Platform:    pl,
			AccessToken: "token-" + string(pl),
			AccountID:   "acct-" + string(pl),
		}); err != nil {
			t.Fatalf("connect %s: %v", pl, err)
		}
	}
}

// seed یک پست PENDING سررسیدشده همراه با trigger آن
func (f *fixture) seed(t *testing.T, maxRetries int, pls ...platform.Platform) *scheduledpost.ScheduledPost {
	t.Helper()
	due := f.now.Add(-time.Second)
	p := &scheduledpost.ScheduledPost{
		ID:            uuid.Must(uuid.NewV4()),
		UserID:        f.owner,
		Content:       "launch day",
		Platforms:     platform.List(pls),
		ScheduledTime: due,
		NextRunAt:     due,
		Status:        scheduledpost.StatusPending,
		MaxRetries:    maxRetries,
		Version:       1,
	}
	ctx := context.Background()
	if err := f.posts.Create(ctx, p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	if err := f.triggers.Create(ctx, p.ID.String(), due); err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	return p
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *scheduledpost.ScheduledPost {
	t.Helper()
	p, err := f.posts.FindByID(context.Background(), id.String())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	return p
}

func (f *fixture) hasTrigger(t *testing.T, id uuid.UUID) bool {
	t.Helper()
	ok, err := f.triggers.Exists(context.Background(), id.String())
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	return ok
}
