package scheduledpostapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"crosspost/internal/adapters/database"
	"crosspost/internal/core/errs"
	"crosspost/internal/core/platform"
	"crosspost/internal/core/profile"
	"crosspost/internal/core/scheduledpost"
	"crosspost/internal/core/user"
	publisherPort "crosspost/internal/ports/publisher"
	spPort "crosspost/internal/ports/scheduledpost"
	"crosspost/internal/ports/trigger"

	"github.com/glebarez/sqlite"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// flakyTriggers خطای Create را شبیه‌سازی می‌کند
type flakyTriggers struct {
	trigger.Store
	failCreate bool
}

func (f *flakyTriggers) Create(ctx context.Context, postID string, at time.Time) error {
	if f.failCreate {
		return errors.New("redis down")
	}
	return f.Store.Create(ctx, postID, at)
}

// supported فقط وجود publisher برای پلتفرم را گزارش می‌کند
type supported platform.List

func (s supported) Get(p platform.Platform) (publisherPort.Publisher, bool) {
	return nil, platform.List(s).Contains(p)
}

type fixture struct {
	svc      *ScheduledPostService
	posts    *database.ScheduledPostRepositoryDatabase
	store    *database.TriggerStoreDatabase
	triggers *flakyTriggers
	owner    string
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	users := database.NewUserRepositoryDatabase(db)
	if _, err := users.Create(ctx, &user.User{ID: owner, Name: "N", Family: "F", Username: "owner"}); err != nil {
		t.Fatalf("user: %v", err)
	}
	profiles := database.NewProfileRepositoryDatabase(db)
	for _, pl := range []platform.Platform{platform.X, platform.Telegram, platform.LinkedIn} {
		if _, err := profiles.Upsert(ctx, &profile.Profile{
			ID: uuid.Must(uuid.NewV4()), UserID: owner, Platform: pl, AccessToken: "tok",
		}); err != nil {
			t.Fatalf("profile: %v", err)
		}
	}

	f := &fixture{
		posts: database.NewScheduledPostRepositoryDatabase(db),
		store: database.NewTriggerStoreDatabase(db, "node", time.Minute),
		owner: owner.String(),
		now:   time.Now().UTC().Truncate(time.Millisecond),
	}
	f.triggers = &flakyTriggers{Store: f.store}
	f.svc = NewScheduledPostService(f.posts, users, profiles, supported{platform.X, platform.Instagram, platform.Telegram}, f.triggers, scheduledpost.DefaultMaxRetries, zap.NewNop())
	f.svc.Now = func() time.Time { return f.now }
	return f
}

func (f *fixture) input(at time.Time, pls ...string) spPort.CreateInput {
	return spPort.CreateInput{Content: "hello world", Platforms: pls, ScheduledTime: at}
}

// dueAt زمانی که trigger پست برای آن تحویل داده می‌شود
func (f *fixture) dueAt(t *testing.T, postID string, candidates ...time.Time) time.Time {
	t.Helper()
	for _, at := range candidates {
		leases, err := f.store.Acquire(context.Background(), at, 10)
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		for _, l := range leases {
			if l.PostID == postID {
				return l.FireAt
			}
		}
	}
	return time.Time{}
}

func TestCreateSchedulesExactlyOneTrigger(t *testing.T) {
	f := newFixture(t)
	at := f.now.Add(time.Hour)
	dto, err := f.svc.Create(context.Background(), f.owner, f.input(at, "x", "telegram"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Status != string(scheduledpost.StatusPending) || dto.MaxRetries != 3 || dto.RetryCount != 0 {
		t.Fatalf("dto = %+v", dto)
	}
	got := f.dueAt(t, dto.ID, at.Add(-time.Second), at)
	if !got.Equal(at) {
		t.Fatalf("trigger fires at %v, want %v", got, at)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	future := f.now.Add(time.Hour)
	cases := map[string]spPort.CreateInput{
		"blank content":    {Content: "  ", Platforms: []string{"x"}, ScheduledTime: future},
		"no platforms":     {Content: "hi", ScheduledTime: future},
		"unknown platform": {Content: "hi", Platforms: []string{"myspace"}, ScheduledTime: future},
		"duplicate":        {Content: "hi", Platforms: []string{"x", "twitter"}, ScheduledTime: future},
		"past time":        {Content: "hi", Platforms: []string{"x"}, ScheduledTime: f.now.Add(-time.Minute)},
		"no profile":       {Content: "hi", Platforms: []string{"instagram"}, ScheduledTime: future},
	}
	for name, in := range cases {
		if _, err := f.svc.Create(ctx, f.owner, in); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("%s: err = %v, want validation", name, err)
		}
	}
	if _, err := f.svc.Create(ctx, uuid.Must(uuid.NewV4()).String(), f.input(future, "x")); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown owner: err = %v", err)
	}
}

func TestPlatformWithoutPublisherIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := f.now.Add(time.Hour)

	if _, err := f.svc.Create(ctx, f.owner, f.input(at, "x", "linkedin")); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("create: err = %v, want validation", err)
	}
	if list, _ := f.svc.List(ctx, f.owner, ""); len(list) != 0 {
		t.Fatalf("post stored for unsupported platform")
	}

	dto, err := f.svc.Create(ctx, f.owner, f.input(at, "x"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Update(ctx, dto.ID, f.owner, f.input(at, "linkedin")); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("update: err = %v, want validation", err)
	}
	got, _ := f.svc.Get(ctx, dto.ID, f.owner)
	if len(got.Platforms) != 1 || got.Platforms[0] != "x" {
		t.Fatalf("platforms changed: %v", got.Platforms)
	}
}

func TestCreateRollsBackWhenTriggerFails(t *testing.T) {
	f := newFixture(t)
	f.triggers.failCreate = true
	_, err := f.svc.Create(context.Background(), f.owner, f.input(f.now.Add(time.Hour), "x"))
	if !errors.Is(err, errs.ErrScheduling) {
		t.Fatalf("err = %v, want scheduling error", err)
	}
	list, _ := f.svc.List(context.Background(), f.owner, "")
	if len(list) != 0 {
		t.Fatalf("record kept after trigger failure: %d", len(list))
	}
}

func TestUpdateReschedulesTrigger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	oldAt := f.now.Add(time.Hour)
	dto, err := f.svc.Create(ctx, f.owner, f.input(oldAt, "x"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newAt := f.now.Add(3 * time.Hour)
	in := f.input(newAt, "x", "telegram")
	in.Content = "edited"
	updated, err := f.svc.Update(ctx, dto.ID, f.owner, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Content != "edited" || len(updated.Platforms) != 2 || !updated.NextRunAt.Equal(newAt) {
		t.Fatalf("updated = %+v", updated)
	}

	if got := f.dueAt(t, dto.ID, oldAt); !got.IsZero() {
		t.Fatalf("old trigger still fires at %v", got)
	}
	if got := f.dueAt(t, dto.ID, newAt); !got.Equal(newAt) {
		t.Fatalf("new trigger fires at %v", got)
	}
}

func TestUpdateKeepsTriggerWhenTimeUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := f.now.Add(time.Hour)
	dto, _ := f.svc.Create(ctx, f.owner, f.input(at, "x"))

	f.triggers.failCreate = true
	in := f.input(at, "telegram")
	if _, err := f.svc.Update(ctx, dto.ID, f.owner, in); err != nil {
		t.Fatalf("update without reschedule touched the trigger: %v", err)
	}
	if got := f.dueAt(t, dto.ID, at); !got.Equal(at) {
		t.Fatalf("trigger fires at %v", got)
	}
}

func TestUpdateRevertsWhenTriggerFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	oldAt := f.now.Add(time.Hour)
	dto, _ := f.svc.Create(ctx, f.owner, f.input(oldAt, "x"))

	f.triggers.failCreate = true
	in := f.input(f.now.Add(5*time.Hour), "x")
	in.Content = "never saved"
	if _, err := f.svc.Update(ctx, dto.ID, f.owner, in); !errors.Is(err, errs.ErrScheduling) {
		t.Fatalf("err = %v", err)
	}
	got, _ := f.svc.Get(ctx, dto.ID, f.owner)
	if got.Content != "hello world" || !got.ScheduledTime.Equal(oldAt) {
		t.Fatalf("record not reverted: %+v", got)
	}
}

func TestStateGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, st := range []scheduledpost.Status{scheduledpost.StatusProcessing, scheduledpost.StatusFailed, scheduledpost.StatusPublished} {
		dto, err := f.svc.Create(ctx, f.owner, f.input(f.now.Add(time.Hour), "x"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		p, _ := f.posts.FindByID(ctx, dto.ID)
		p.Status = st
		if err := f.posts.UpdateIfVersion(ctx, p, p.Version); err != nil {
			t.Fatalf("set status: %v", err)
		}

		if _, err := f.svc.Update(ctx, dto.ID, f.owner, f.input(f.now.Add(2*time.Hour), "x")); !errors.Is(err, errs.ErrInvalidState) {
			t.Fatalf("%s update: err = %v", st, err)
		}
		if err := f.svc.Cancel(ctx, dto.ID, f.owner); !errors.Is(err, errs.ErrInvalidState) {
			t.Fatalf("%s cancel: err = %v", st, err)
		}
		if _, err := f.svc.TriggerNow(ctx, dto.ID, f.owner); !errors.Is(err, errs.ErrInvalidState) {
			t.Fatalf("%s triggerNow: err = %v", st, err)
		}

		after, err := f.posts.FindByID(ctx, dto.ID)
		if err != nil {
			t.Fatalf("%s reload: %v", st, err)
		}
		if after.Version != p.Version || after.Status != st || after.Content != p.Content ||
			!after.ScheduledTime.Equal(p.ScheduledTime) || !after.NextRunAt.Equal(p.NextRunAt) {
			t.Fatalf("%s: record changed by rejected call: before %+v after %+v", st, p, after)
		}
		if ok, err := f.store.Exists(ctx, dto.ID); err != nil || !ok {
			t.Fatalf("%s: trigger removed by rejected call (exists=%v, err=%v)", st, ok, err)
		}
	}
}

func TestOwnershipIsHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto, _ := f.svc.Create(ctx, f.owner, f.input(f.now.Add(time.Hour), "x"))
	stranger := uuid.Must(uuid.NewV4()).String()

	if _, err := f.svc.Get(ctx, dto.ID, stranger); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("get: %v", err)
	}
	if err := f.svc.Cancel(ctx, dto.ID, stranger); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("cancel: %v", err)
	}
	if list, _ := f.svc.List(ctx, stranger, ""); len(list) != 0 {
		t.Fatalf("stranger sees %d posts", len(list))
	}
}

func TestCancelRemovesRecordAndTrigger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := f.now.Add(time.Hour)
	dto, _ := f.svc.Create(ctx, f.owner, f.input(at, "x"))

	if err := f.svc.Cancel(ctx, dto.ID, f.owner); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.svc.Get(ctx, dto.ID, f.owner); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("get after cancel: %v", err)
	}
	if ok, _ := f.store.Exists(ctx, dto.ID); ok {
		t.Fatalf("trigger survived cancel")
	}
}

func TestTriggerNowFiresImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := f.now.Add(24 * time.Hour)
	dto, _ := f.svc.Create(ctx, f.owner, f.input(at, "x"))

	got, err := f.svc.TriggerNow(ctx, dto.ID, f.owner)
	if err != nil {
		t.Fatalf("trigger now: %v", err)
	}
	if got.Status != string(scheduledpost.StatusPending) || !got.NextRunAt.Equal(f.now) {
		t.Fatalf("dto = %+v", got)
	}
	if fire := f.dueAt(t, dto.ID, f.now); !fire.Equal(f.now) {
		t.Fatalf("trigger not due now: %v", fire)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.svc.Create(ctx, f.owner, f.input(f.now.Add(time.Hour), "x"))
	b, _ := f.svc.Create(ctx, f.owner, f.input(f.now.Add(2*time.Hour), "x"))
	p, _ := f.posts.FindByID(ctx, b.ID)
	p.Status = scheduledpost.StatusFailed
	_ = f.posts.UpdateIfVersion(ctx, p, p.Version)

	pending, err := f.svc.List(ctx, f.owner, "pending")
	if err != nil || len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("pending = %v, %v", pending, err)
	}
	if _, err := f.svc.List(ctx, f.owner, "archived"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("bad status: %v", err)
	}
}
