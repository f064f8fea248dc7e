package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"amicus.org/internal/auth"
	"amicus.org/internal/membership"
)

func testActor() auth.Actor {
	return auth.Actor{
		UserID:        "user-1",
		Email:         "admin@north.example",
		Role:          auth.RoleAdmin,
		AssociationID: "assoc-1",
	}
}

func memberRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "association_id", "code", "status",
		"name", "email", "phone", "created_at", "updated_at",
	}).AddRow("mbr-1", "user-2", "assoc-1", "NORTH-0001", "pending",
		"Alice", "alice@north.example", "", now, now)
}

func TestCreateAccountCommitsBothRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("insert into users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into members").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	now := time.Now()
	store := NewStore(db)
	err = store.CreateAccount(context.Background(),
		&membership.User{ID: "user-2", Email: "alice@north.example", Name: "Alice",
			PasswordHash: "hash", Role: auth.RoleMember, AssociationID: "assoc-1",
			CreatedAt: now, UpdatedAt: now},
		&membership.Member{ID: "mbr-1", UserID: "user-2", AssociationID: "assoc-1",
			Code: "NORTH-0001", Status: membership.MemberPending, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateAccountRollsBackWhenMemberInsertFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("insert into users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into members").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})
	mock.ExpectRollback()

	now := time.Now()
	store := NewStore(db)
	err = store.CreateAccount(context.Background(),
		&membership.User{ID: "user-2", CreatedAt: now, UpdatedAt: now},
		&membership.Member{ID: "mbr-1", UserID: "user-2", AssociationID: "missing",
			CreatedAt: now, UpdatedAt: now})
	if !errors.Is(err, membership.ErrInvalidAssociation) {
		t.Fatalf("expected ErrInvalidAssociation, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateAccountMapsDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("insert into users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	mock.ExpectRollback()

	store := NewStore(db)
	err = store.CreateAccount(context.Background(),
		&membership.User{ID: "user-2", Email: "taken@north.example"},
		&membership.Member{ID: "mbr-1"})
	if !errors.Is(err, membership.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetMemberBindsActorScope(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	actor := testActor()
	mock.ExpectBegin()
	mock.ExpectExec("select set_config").
		WithArgs(actor.UserID, actor.AssociationID, string(actor.Role)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select (.+) from members m join users u").
		WithArgs("mbr-1").
		WillReturnRows(memberRows())
	mock.ExpectCommit()

	store := NewStore(db)
	member, err := store.GetMember(context.Background(), actor, "mbr-1")
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if member.ID != "mbr-1" || member.Name != "Alice" || member.Status != membership.MemberPending {
		t.Fatalf("unexpected member: %+v", member)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetMemberNotFoundRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("select set_config").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select (.+) from members m join users u").
		WithArgs("mbr-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	store := NewStore(db)
	_, err = store.GetMember(context.Background(), testActor(), "mbr-missing")
	if !errors.Is(err, membership.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransitionMemberConflictWhenStatusMoved(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("select set_config").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select status from members where id = (.+) for update").
		WithArgs("mbr-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))
	mock.ExpectRollback()

	store := NewStore(db)
	_, err = store.TransitionMember(context.Background(), testActor(), "mbr-1",
		membership.MemberPending, membership.MemberActive)
	if !errors.Is(err, membership.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransitionMemberUpdatesAndReturnsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("select set_config").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select status from members where id = (.+) for update").
		WithArgs("mbr-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectExec("update members set status").
		WithArgs("mbr-1", "active").
		WillReturnResult(sqlmock.NewResult(0, 1))
	now := time.Now()
	mock.ExpectQuery("select (.+) from members m join users u").
		WithArgs("mbr-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "association_id", "code", "status",
			"name", "email", "phone", "created_at", "updated_at",
		}).AddRow("mbr-1", "user-2", "assoc-1", "NORTH-0001", "active",
			"Alice", "alice@north.example", "", now, now))
	mock.ExpectCommit()

	store := NewStore(db)
	member, err := store.TransitionMember(context.Background(), testActor(), "mbr-1",
		membership.MemberPending, membership.MemberActive)
	if err != nil {
		t.Fatalf("TransitionMember: %v", err)
	}
	if member.Status != membership.MemberActive {
		t.Fatalf("expected active status, got %s", member.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListMembersAppliesFiltersAndPaging(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("select set_config").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select count").
		WithArgs("assoc-1", "pending", "%ali%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("select (.+) from members m join users u (.+) limit").
		WithArgs("assoc-1", "pending", "%ali%", 25, 0).
		WillReturnRows(memberRows())
	mock.ExpectCommit()

	store := NewStore(db)
	items, total, err := store.ListMembers(context.Background(), testActor(), membership.MemberFilter{
		AssociationID: "assoc-1",
		Status:        membership.MemberPending,
		Search:        "ali",
		Page:          1,
		Limit:         25,
	})
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].Code != "NORTH-0001" {
		t.Fatalf("unexpected result: total=%d items=%+v", total, items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestScopedOperationTimesOutWhenPoolExhausted(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(1)
	held, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("acquire conn: %v", err)
	}
	defer held.Close()

	store := NewStore(db, WithAcquireTimeout(20*time.Millisecond))
	_, err = store.GetMember(context.Background(), testActor(), "mbr-1")
	if !errors.Is(err, membership.ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
}
