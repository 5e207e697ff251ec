package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	"github.com/allisson/vaultadmin/internal/testutil"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
)

func newRecord(ownerID *uuid.UUID, createdBy uuid.UUID, visibility vaultDomain.Visibility, name string) *vaultDomain.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &vaultDomain.Record{
		ID:         uuid.Must(uuid.NewV7()),
		OwnerID:    ownerID,
		CreatedBy:  createdBy,
		Visibility: visibility,
		Name:       name,
		URL:        "https://example.com",
		Username:   "test-username",
		Secret: cryptoDomain.CipherText{
			Data: []byte("test-ciphertext"),
			IV:   []byte("0123456789abcdef"),
		},
		Notes:     "test notes",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPostgreSQLRecordRepository_CreateAndGet(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	ownerID := testutil.CreateTestUser(t, db, "postgres", "owner@example.com", "user")
	record := newRecord(&ownerID, ownerID, vaultDomain.VisibilityPrivate, "GitHub")

	require.NoError(t, repo.Create(ctx, record))

	scope := vaultDomain.ScopeFor(identityDomain.RoleUser, ownerID)
	got, err := repo.Get(ctx, record.ID, scope)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, ownerID, *got.OwnerID)
	assert.Equal(t, vaultDomain.VisibilityPrivate, got.Visibility)
	assert.Equal(t, "GitHub", got.Name)
	assert.Equal(t, record.Secret, got.Secret)
	assert.True(t, got.HasSecret())
}

func TestPostgreSQLRecordRepository_Get_ScopeMasksOtherUsers(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	ownerID := testutil.CreateTestUser(t, db, "postgres", "owner@example.com", "user")
	otherID := testutil.CreateTestUser(t, db, "postgres", "other@example.com", "user")
	adminID := testutil.CreateTestUser(t, db, "postgres", "admin@example.com", "admin")
	superadminID := testutil.CreateTestUser(t, db, "postgres", "root@example.com", "superadmin")

	private := newRecord(&ownerID, ownerID, vaultDomain.VisibilityPrivate, "Private Entry")
	require.NoError(t, repo.Create(ctx, private))

	// The owner sees it.
	_, err := repo.Get(ctx, private.ID, vaultDomain.ScopeFor(identityDomain.RoleUser, ownerID))
	assert.NoError(t, err)

	// Another user gets not-found, not forbidden.
	_, err = repo.Get(ctx, private.ID, vaultDomain.ScopeFor(identityDomain.RoleUser, otherID))
	assert.ErrorIs(t, err, vaultDomain.ErrRecordNotFound)

	// An admin cannot see a foreign private record either.
	_, err = repo.Get(ctx, private.ID, vaultDomain.ScopeFor(identityDomain.RoleAdmin, adminID))
	assert.ErrorIs(t, err, vaultDomain.ErrRecordNotFound)

	// A superadmin sees everything.
	_, err = repo.Get(ctx, private.ID, vaultDomain.ScopeFor(identityDomain.RoleSuperadmin, superadminID))
	assert.NoError(t, err)
}

func TestPostgreSQLRecordRepository_Get_SharedVisibility(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	recordRepo := NewPostgreSQLRecordRepository(db)
	assignmentRepo := NewPostgreSQLAssignmentRepository(db)
	ctx := context.Background()

	adminID := testutil.CreateTestUser(t, db, "postgres", "admin@example.com", "admin")
	assignedID := testutil.CreateTestUser(t, db, "postgres", "assigned@example.com", "user")
	unassignedID := testutil.CreateTestUser(t, db, "postgres", "unassigned@example.com", "user")

	shared := newRecord(nil, adminID, vaultDomain.VisibilityShared, "Team Wiki")
	require.NoError(t, recordRepo.Create(ctx, shared))

	// Admins see every shared record.
	_, err := recordRepo.Get(ctx, shared.ID, vaultDomain.ScopeFor(identityDomain.RoleAdmin, adminID))
	assert.NoError(t, err)

	// An unassigned user does not.
	_, err = recordRepo.Get(ctx, shared.ID, vaultDomain.ScopeFor(identityDomain.RoleUser, unassignedID))
	assert.ErrorIs(t, err, vaultDomain.ErrRecordNotFound)

	// Granting an assignment makes it visible.
	require.NoError(t, assignmentRepo.Create(ctx, &vaultDomain.Assignment{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    assignedID,
		RecordID:  shared.ID,
		CreatedBy: adminID,
		CreatedAt: time.Now().UTC(),
	}))

	_, err = recordRepo.Get(ctx, shared.ID, vaultDomain.ScopeFor(identityDomain.RoleUser, assignedID))
	assert.NoError(t, err)
}

func TestPostgreSQLRecordRepository_List(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	ownerID := testutil.CreateTestUser(t, db, "postgres", "owner@example.com", "user")
	otherID := testutil.CreateTestUser(t, db, "postgres", "other@example.com", "user")
	adminID := testutil.CreateTestUser(t, db, "postgres", "admin@example.com", "admin")

	require.NoError(t, repo.Create(ctx, newRecord(&ownerID, ownerID, vaultDomain.VisibilityPrivate, "Alpha")))
	require.NoError(t, repo.Create(ctx, newRecord(&otherID, otherID, vaultDomain.VisibilityPrivate, "Beta")))
	require.NoError(t, repo.Create(ctx, newRecord(nil, adminID, vaultDomain.VisibilityShared, "Gamma")))

	// A plain user sees only their own private record.
	records, err := repo.List(ctx, vaultDomain.ScopeFor(identityDomain.RoleUser, ownerID), 0, 50)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Alpha", records[0].Name)
	assert.False(t, records[0].HasSecret(), "list must not carry ciphertext")

	// An admin sees their records plus every shared one.
	records, err = repo.List(ctx, vaultDomain.ScopeFor(identityDomain.RoleAdmin, adminID), 0, 50)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Gamma", records[0].Name)

	// A superadmin sees everything, ordered by name.
	records, err = repo.List(ctx, vaultDomain.ScopeFor(identityDomain.RoleSuperadmin, adminID), 0, 50)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Alpha", records[0].Name)
	assert.Equal(t, "Beta", records[1].Name)
	assert.Equal(t, "Gamma", records[2].Name)

	// Pagination applies after scoping.
	records, err = repo.List(ctx, vaultDomain.ScopeFor(identityDomain.RoleSuperadmin, adminID), 1, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Beta", records[0].Name)
}

func TestPostgreSQLRecordRepository_Update(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	ownerID := testutil.CreateTestUser(t, db, "postgres", "owner@example.com", "user")
	otherID := testutil.CreateTestUser(t, db, "postgres", "other@example.com", "user")
	superadminID := testutil.CreateTestUser(t, db, "postgres", "root@example.com", "superadmin")

	record := newRecord(&ownerID, ownerID, vaultDomain.VisibilityPrivate, "GitHub")
	require.NoError(t, repo.Create(ctx, record))

	// The owner can update.
	record.Name = "GitHub Enterprise"
	err := repo.Update(ctx, record, vaultDomain.ModifyScopeFor(identityDomain.RoleUser, ownerID))
	require.NoError(t, err)

	got, err := repo.Get(ctx, record.ID, vaultDomain.ScopeFor(identityDomain.RoleUser, ownerID))
	require.NoError(t, err)
	assert.Equal(t, "GitHub Enterprise", got.Name)

	// Another user's update affects zero rows and reports not-found.
	err = repo.Update(ctx, record, vaultDomain.ModifyScopeFor(identityDomain.RoleUser, otherID))
	assert.ErrorIs(t, err, vaultDomain.ErrRecordNotFound)

	// Even a superadmin cannot modify a foreign private record.
	err = repo.Update(ctx, record, vaultDomain.ModifyScopeFor(identityDomain.RoleSuperadmin, superadminID))
	assert.ErrorIs(t, err, vaultDomain.ErrRecordNotFound)
}

func TestPostgreSQLRecordRepository_Update_ClearsSecret(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	ownerID := testutil.CreateTestUser(t, db, "postgres", "owner@example.com", "user")
	record := newRecord(&ownerID, ownerID, vaultDomain.VisibilityPrivate, "GitHub")
	require.NoError(t, repo.Create(ctx, record))

	record.Secret = cryptoDomain.CipherText{}
	require.NoError(t, repo.Update(ctx, record, vaultDomain.ModifyScopeFor(identityDomain.RoleUser, ownerID)))

	got, err := repo.Get(ctx, record.ID, vaultDomain.ScopeFor(identityDomain.RoleUser, ownerID))
	require.NoError(t, err)
	assert.False(t, got.HasSecret())
}

func TestPostgreSQLRecordRepository_Delete(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	ownerID := testutil.CreateTestUser(t, db, "postgres", "owner@example.com", "user")
	otherID := testutil.CreateTestUser(t, db, "postgres", "other@example.com", "user")

	record := newRecord(&ownerID, ownerID, vaultDomain.VisibilityPrivate, "GitHub")
	require.NoError(t, repo.Create(ctx, record))

	// Another user's delete affects zero rows.
	err := repo.Delete(ctx, record.ID, vaultDomain.ModifyScopeFor(identityDomain.RoleUser, otherID))
	assert.ErrorIs(t, err, vaultDomain.ErrRecordNotFound)

	// The owner's delete succeeds.
	require.NoError(t, repo.Delete(ctx, record.ID, vaultDomain.ModifyScopeFor(identityDomain.RoleUser, ownerID)))

	_, err = repo.Get(ctx, record.ID, vaultDomain.ScopeFor(identityDomain.RoleUser, ownerID))
	assert.ErrorIs(t, err, vaultDomain.ErrRecordNotFound)

	// Deleting again reports not-found.
	err = repo.Delete(ctx, record.ID, vaultDomain.ModifyScopeFor(identityDomain.RoleUser, ownerID))
	assert.ErrorIs(t, err, vaultDomain.ErrRecordNotFound)
}

func TestPostgreSQLRecordRepository_UpdateSecret(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	ownerID := testutil.CreateTestUser(t, db, "postgres", "owner@example.com", "user")
	record := newRecord(&ownerID, ownerID, vaultDomain.VisibilityPrivate, "GitHub")
	require.NoError(t, repo.Create(ctx, record))

	rotated := cryptoDomain.CipherText{
		Data: []byte("rotated-ciphertext"),
		IV:   []byte("fedcba9876543210"),
	}
	require.NoError(t, repo.UpdateSecret(ctx, record.ID, rotated))

	got, err := repo.Get(ctx, record.ID, vaultDomain.ScopeFor(identityDomain.RoleUser, ownerID))
	require.NoError(t, err)
	assert.Equal(t, rotated, got.Secret)
}

func TestPostgreSQLRecordRepository_ListAll(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	ownerID := testutil.CreateTestUser(t, db, "postgres", "owner@example.com", "user")
	require.NoError(t, repo.Create(ctx, newRecord(&ownerID, ownerID, vaultDomain.VisibilityPrivate, "Alpha")))
	require.NoError(t, repo.Create(ctx, newRecord(&ownerID, ownerID, vaultDomain.VisibilityPrivate, "Beta")))

	records, err := repo.ListAll(ctx, 0, 50)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].HasSecret(), "rotation needs the ciphertext")

	records, err = repo.ListAll(ctx, 2, 50)
	require.NoError(t, err)
	assert.Empty(t, records)
}
