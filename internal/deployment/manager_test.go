package deployment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DeploymentBot3000/DeploymentBot/internal/database"
	"github.com/DeploymentBot3000/DeploymentBot/internal/model"
	"github.com/DeploymentBot3000/DeploymentBot/internal/platform"
)

type fakeGateway struct {
	mx      sync.Mutex
	nextID  int
	sent    map[string]string
	dms     map[string][]string
	deleted []string

	failSend bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sent: make(map[string]string),
		dms:  make(map[string][]string),
	}
}

func (g *fakeGateway) SendMessage(_ context.Context, channel string, content string) (platform.MessageRef, error) {
	g.mx.Lock()
	defer g.mx.Unlock()

	if g.failSend {
		return platform.MessageRef{}, errors.New("send failed")
	}

	g.nextID++
	ref := platform.MessageRef{Channel: channel, ID: strconv.Itoa(g.nextID)}
	g.sent[ref.ID] = content

	return ref, nil
}

func (g *fakeGateway) EditMessage(_ context.Context, ref platform.MessageRef, content string) error {
	g.mx.Lock()
	defer g.mx.Unlock()

	if _, ok := g.sent[ref.ID]; !ok {
		return platform.ErrNotFound
	}

	g.sent[ref.ID] = content

	return nil
}

func (g *fakeGateway) DeleteMessage(_ context.Context, ref platform.MessageRef) error {
	g.mx.Lock()
	defer g.mx.Unlock()

	if _, ok := g.sent[ref.ID]; !ok {
		return platform.ErrNotFound
	}

	delete(g.sent, ref.ID)
	g.deleted = append(g.deleted, ref.ID)

	return nil
}

func (g *fakeGateway) ResolveMember(_ context.Context, userID string) (string, error) {
	return "member-" + userID, nil
}

func (g *fakeGateway) SendDirectMessage(_ context.Context, userID string, content string) error {
	g.mx.Lock()
	defer g.mx.Unlock()

	g.dms[userID] = append(g.dms[userID], content)

	return nil
}

type fakePerms map[string]bool

func (p fakePerms) IsAdmin(userID string) bool {
	return p[userID]
}

func testConfig() *Config {
	return &Config{
		MaxRosterSize:    4,
		MinLeadTime:      15 * time.Minute,
		EditGraceWindow:  5 * time.Minute,
		Duration:         2 * time.Hour,
		NoticeLeadTime:   15 * time.Minute,
		DeleteLeadTime:   time.Hour,
		SignupChannel:    "signup",
		DepartureChannel: "departure",
		SweepInterval:    time.Minute,
		PurgeInterval:    time.Hour,
		OrphanInterval:   24 * time.Hour,
	}
}

func newTestManager(t *testing.T, perms fakePerms) (*Manager, *fakeGateway, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.New(db).Migrate())

	gw := newFakeGateway()

	return newManager(db, testConfig(), gw, gw, perms), gw, db
}

func mustCreate(t *testing.T, m *Manager, host, title string) *Details {
	t.Helper()

	d, err := m.Create(context.Background(), CreateRequest{
		Title:      title,
		Difficulty: "9",
		Host:       host,
		StartTime:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	return d
}

func TestNew_ConstructOnceGuard(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.New(db).Migrate())

	gw := newFakeGateway()

	_, err = New(db, testConfig(), gw, gw, fakePerms{})
	require.NoError(t, err)

	_, err = New(db, testConfig(), gw, gw, fakePerms{})
	require.Error(t, err)
}

func TestCreate(t *testing.T) {
	m, gw, db := newTestManager(t, fakePerms{})

	d := mustCreate(t, m, "host1", "op1")

	require.NotEmpty(t, d.Message)
	require.Equal(t, "signup", d.Channel)
	require.Equal(t, "host1", d.Host.UserID)
	require.Len(t, d.Fireteam, 1)
	require.Contains(t, gw.sent, d.Message)

	stored := database.NewDeploymentQuery(db).Id(d.ID).One()
	require.NotNil(t, stored)
	require.Equal(t, d.Message, stored.Message)
	require.Equal(t, stored.StartTime.Add(2*time.Hour).Unix(), stored.EndTime.Unix())
}

func TestCreate_RejectsShortLeadTime(t *testing.T) {
	m, _, _ := newTestManager(t, fakePerms{})

	_, err := m.Create(context.Background(), CreateRequest{
		Title:     "op1",
		Host:      "host1",
		StartTime: time.Now().Add(5 * time.Minute),
	})
	require.Error(t, err)
}

func TestCreate_CompensatesFailedTransaction(t *testing.T) {
	m, gw, db := newTestManager(t, fakePerms{})

	// A duplicate title is fine, but a duplicated host roster row is
	// not possible here, so force the failure in the messenger instead.
	gw.failSend = true

	_, err := m.Create(context.Background(), CreateRequest{
		Title:     "op1",
		Host:      "host1",
		StartTime: time.Now().Add(time.Hour),
	})
	require.Error(t, err)

	require.EqualValues(t, 0, database.NewDeploymentQuery(db).Count())
	require.EqualValues(t, 0, database.NewRosterQuery(db).Count())
	require.Empty(t, gw.sent)
}

func TestSignup_RoleSwitch(t *testing.T) {
	m, _, db := newTestManager(t, fakePerms{})
	d := mustCreate(t, m, "host1", "op1")
	ctx := context.Background()

	_, err := m.Signup(ctx, "u1", d.Message, model.RoleFireteam)
	require.NoError(t, err)

	// Re-selecting the same role is an error, not a silent no-op.
	_, err = m.Signup(ctx, "u1", d.Message, model.RoleFireteam)

	var already *AlreadySignedUpError
	require.ErrorAs(t, err, &already)
	require.Equal(t, model.RoleFireteam, already.Role)

	// Switching to backup replaces the entry, net roster size unchanged.
	_, err = m.Signup(ctx, "u1", d.Message, model.RoleBackup)
	require.NoError(t, err)

	require.EqualValues(t, 2, database.NewRosterQuery(db).Deployment(d.ID).Count())

	entry := database.NewRosterQuery(db).Deployment(d.ID).User("u1").One()
	require.NotNil(t, entry)
	require.Equal(t, model.KindBackup, entry.Kind)
}

func TestSignup_CapacityInvariant(t *testing.T) {
	m, _, db := newTestManager(t, fakePerms{})
	d := mustCreate(t, m, "host1", "op1")
	ctx := context.Background()

	// Host occupies one fireteam slot, three more fit.
	for i := 0; i < 3; i++ {
		_, err := m.Signup(ctx, fmt.Sprintf("u%d", i), d.Message, model.RoleFireteam)
		require.NoError(t, err)
	}

	_, err := m.Signup(ctx, "u9", d.Message, model.RoleFireteam)
	require.ErrorIs(t, err, ErrRosterFull)
	require.EqualValues(t, 4, database.NewRosterQuery(db).Deployment(d.ID).Kind(model.KindFireteam).Count())

	// Backup roster has its own independent capacity.
	for i := 0; i < 4; i++ {
		_, err := m.Signup(ctx, fmt.Sprintf("b%d", i), d.Message, model.RoleBackup)
		require.NoError(t, err)
	}

	_, err = m.Signup(ctx, "b9", d.Message, model.RoleBackup)
	require.ErrorIs(t, err, ErrRosterFull)
}

func TestSignup_HostCannotBackup(t *testing.T) {
	m, _, _ := newTestManager(t, fakePerms{})
	d := mustCreate(t, m, "host1", "op1")

	_, err := m.Signup(context.Background(), "host1", d.Message, model.RoleBackup)
	require.ErrorIs(t, err, ErrHostCannotBackup)
}

func TestSignup_ClosedAfterNotice(t *testing.T) {
	m, _, db := newTestManager(t, fakePerms{})
	d := mustCreate(t, m, "host1", "op1")

	require.NoError(t, database.NewDeploymentQuery(db).Id(d.ID).Update(map[string]any{"notice_sent": true}))

	_, err := m.Signup(context.Background(), "u1", d.Message, model.RoleFireteam)
	require.ErrorIs(t, err, ErrSignupsClosed)
}

func TestSignup_UnknownMessage(t *testing.T) {
	m, _, _ := newTestManager(t, fakePerms{})

	_, err := m.Signup(context.Background(), "u1", "no-such-message", model.RoleFireteam)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_PartialFields(t *testing.T) {
	m, _, _ := newTestManager(t, fakePerms{})
	d := mustCreate(t, m, "host1", "op1")

	title := "renamed"
	oldDetails, newDetails, err := m.Update(context.Background(), "host1", d.ID, UpdateRequest{Title: &title})
	require.NoError(t, err)

	require.Equal(t, "op1", oldDetails.Title)
	require.Equal(t, "renamed", newDetails.Title)
	require.Equal(t, oldDetails.Difficulty, newDetails.Difficulty)
	require.True(t, oldDetails.StartTime.Equal(newDetails.StartTime))
}

func TestUpdate_StartTimeRecomputesEnd(t *testing.T) {
	m, gw, _ := newTestManager(t, fakePerms{})
	d := mustCreate(t, m, "host1", "op1")

	_, err := m.Signup(context.Background(), "u1", d.Message, model.RoleFireteam)
	require.NoError(t, err)

	newStart := time.Now().Add(3 * time.Hour).Truncate(time.Second)
	_, newDetails, err := m.Update(context.Background(), "host1", d.ID, UpdateRequest{StartTime: &newStart})
	require.NoError(t, err)

	require.True(t, newDetails.EndTime.Equal(newStart.Add(2*time.Hour)))

	// The schedule change is pushed to every participant.
	require.Len(t, gw.dms["u1"], 1)
	require.Empty(t, gw.dms["host1"])
}

func TestUpdate_Authorization(t *testing.T) {
	m, _, _ := newTestManager(t, fakePerms{"admin1": true})
	d := mustCreate(t, m, "host1", "op1")

	title := "renamed"

	_, _, err := m.Update(context.Background(), "stranger", d.ID, UpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrPermission)

	_, _, err = m.Update(context.Background(), "admin1", d.ID, UpdateRequest{Title: &title})
	require.NoError(t, err)
}

func TestUpdate_RejectedAfterNotice(t *testing.T) {
	m, _, db := newTestManager(t, fakePerms{})
	d := mustCreate(t, m, "host1", "op1")

	require.NoError(t, database.NewDeploymentQuery(db).Id(d.ID).Update(map[string]any{"notice_sent": true}))

	title := "renamed"
	_, _, err := m.Update(context.Background(), "host1", d.ID, UpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrEditAfterNotice)
}

func TestRemove(t *testing.T) {
	m, _, db := newTestManager(t, fakePerms{"admin1": true})
	d := mustCreate(t, m, "host1", "op1")
	ctx := context.Background()

	_, err := m.Signup(ctx, "u1", d.Message, model.RoleFireteam)
	require.NoError(t, err)

	// Keyed by title, not message.
	_, err = m.Remove(ctx, "admin1", "u1", "op1")
	require.NoError(t, err)
	require.Nil(t, database.NewRosterQuery(db).Deployment(d.ID).User("u1").One())

	_, err = m.Remove(ctx, "admin1", "u1", "op1")
	require.ErrorIs(t, err, ErrTargetNotSignedUp)

	_, err = m.Remove(ctx, "stranger", "host1", "op1")
	require.ErrorIs(t, err, ErrPermission)

	// Self-removal is always rejected, even for admins.
	_, err = m.Remove(ctx, "admin1", "admin1", "op1")
	require.ErrorIs(t, err, ErrCannotRemoveSelf)

	// The host roster row is immutable for the deployment's lifetime.
	_, err = m.Remove(ctx, "admin1", "host1", "op1")
	require.ErrorIs(t, err, ErrCannotRemoveHost)
}

func TestLeave(t *testing.T) {
	m, _, db := newTestManager(t, fakePerms{})
	d := mustCreate(t, m, "host1", "op1")
	ctx := context.Background()

	_, err := m.Signup(ctx, "u1", d.Message, model.RoleBackup)
	require.NoError(t, err)

	_, err = m.Leave(ctx, "host1", d.Message)
	require.ErrorIs(t, err, ErrHostCannotLeave)

	_, err = m.Leave(ctx, "u2", d.Message)
	require.ErrorIs(t, err, ErrNotSignedUp)

	_, err = m.Leave(ctx, "u1", d.Message)
	require.NoError(t, err)
	require.Nil(t, database.NewRosterQuery(db).Deployment(d.ID).User("u1").One())

	// The roster is frozen once the departure notice went out.
	_, err = m.Signup(ctx, "u1", d.Message, model.RoleBackup)
	require.NoError(t, err)
	require.NoError(t, database.NewDeploymentQuery(db).Id(d.ID).Update(map[string]any{"notice_sent": true}))

	_, err = m.Leave(ctx, "u1", d.Message)
	require.ErrorIs(t, err, ErrSignupsClosed)
}

func TestDelete(t *testing.T) {
	m, gw, db := newTestManager(t, fakePerms{})
	d := mustCreate(t, m, "host1", "op1")
	ctx := context.Background()

	_, err := m.Signup(ctx, "u1", d.Message, model.RoleFireteam)
	require.NoError(t, err)

	_, err = m.Delete(ctx, "stranger", d.Message)
	require.ErrorIs(t, err, ErrPermission)

	snapshot, err := m.Delete(ctx, "host1", d.Message)
	require.NoError(t, err)
	require.Equal(t, "op1", snapshot.Title)

	require.Nil(t, database.NewDeploymentQuery(db).Id(d.ID).One())
	require.NotContains(t, gw.sent, d.Message)
	require.Len(t, gw.dms["u1"], 1)
}

func TestRosterExclusivity(t *testing.T) {
	m, _, db := newTestManager(t, fakePerms{})
	d := mustCreate(t, m, "host1", "op1")
	ctx := context.Background()

	for _, role := range []model.Role{model.RoleFireteam, model.RoleBackup, model.RoleFireteam} {
		_, err := m.Signup(ctx, "u1", d.Message, role)
		require.NoError(t, err)
		require.EqualValues(t, 1, database.NewRosterQuery(db).Deployment(d.ID).User("u1").Count())
	}
}

func TestCreate_RejectedFormIsKeptForPrefill(t *testing.T) {
	m, _, _ := newTestManager(t, fakePerms{})

	_, err := m.Create(context.Background(), CreateRequest{
		Title:      "late op",
		Difficulty: "7",
		Host:       "host1",
		StartTime:  time.Now().Add(time.Minute),
	})
	require.Error(t, err)

	in := m.LatestInputFor("host1")
	require.NotNil(t, in)
	require.Equal(t, "late op", in.Title)
	require.Equal(t, "7", in.Difficulty)

	// a successful create clears the saved form
	mustCreate(t, m, "host1", "on time op")
	require.Nil(t, m.LatestInputFor("host1"))
}

func TestUpdate_BoundedBackwardMove(t *testing.T) {
	m, _, _ := newTestManager(t, fakePerms{})

	d, err := m.Create(context.Background(), CreateRequest{
		Title:      "op1",
		Difficulty: "9",
		Host:       "host1",
		StartTime:  time.Now().Add(10 * time.Hour),
	})
	require.NoError(t, err)

	// far earlier than the announced start, even though still in the future
	early := time.Now().Add(20 * time.Minute)
	_, _, err = m.Update(context.Background(), "host1", d.ID, UpdateRequest{StartTime: &early})
	require.Error(t, err)

	past := time.Now().Add(-time.Minute)
	_, _, err = m.Update(context.Background(), "host1", d.ID, UpdateRequest{StartTime: &past})
	require.Error(t, err)

	// within one grace window of the announced start
	slight := d.StartTime.Add(-4 * time.Minute)
	_, newDetails, err := m.Update(context.Background(), "host1", d.ID, UpdateRequest{StartTime: &slight})
	require.NoError(t, err)
	require.True(t, newDetails.StartTime.Equal(slight))
}
