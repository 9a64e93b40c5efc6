package projects

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aliuyar1234/taskboard/internal/apperrors"
	"github.com/aliuyar1234/taskboard/internal/membership"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

var projectRowColumns = []string{"project_id", "name", "description", "open", "owner_type", "creator_id", "team_id", "created_at"}

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})
	return NewService(sqlDB), mock
}


func TestCheckOwner(t *testing.T) {
	tests := []struct {
		name      string
		ownerType OwnerType
		teamID    *int64
		wantErr   bool
	}{
		{"team with id", OwnerTeam, lo.ToPtr(int64(4)), false},
		{"team without id", OwnerTeam, nil, true},
		{"user without id", OwnerUser, nil, false},
		{"user with id", OwnerUser, lo.ToPtr(int64(4)), true},
		{"unknown", OwnerType("org"), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOwner(tt.ownerType, tt.teamID)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidOwner)
				require.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCreate_DerivesOwnerType(t *testing.T) {
	svc, mock := newMockService(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO projects`).
		WithArgs("Board", "", string(OwnerTeam), int64(1), int64(4)).
		WillReturnRows(sqlmock.NewRows(projectRowColumns).
			AddRow(int64(9), "Board", "", true, "team", int64(1), int64(4), now))

	p, err := svc.Create(context.Background(), 1, NewProject{Name: "Board", TeamID: lo.ToPtr(int64(4))})
	require.NoError(t, err)
	require.Equal(t, OwnerTeam, p.OwnerType)
	require.NotNil(t, p.TeamID)
	require.Equal(t, int64(4), *p.TeamID)
}

func TestCreate_UserOwned(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`INSERT INTO projects`).
		WithArgs("Solo", "notes", string(OwnerUser), int64(1), nil).
		WillReturnRows(sqlmock.NewRows(projectRowColumns).
			AddRow(int64(9), "Solo", "notes", true, "user", int64(1), nil, time.Now()))

	p, err := svc.Create(context.Background(), 1, NewProject{Name: "Solo", Description: "notes"})
	require.NoError(t, err)
	require.Equal(t, OwnerUser, p.OwnerType)
	require.Nil(t, p.TeamID)
}

func TestGetByID_NotFound(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`FROM projects`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(projectRowColumns))

	_, err := svc.GetByID(context.Background(), 9)
	require.ErrorIs(t, err, membership.ErrProjectNotFound)
}

func TestListForUser_Empty(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`FROM projects p`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(projectRowColumns))

	list, err := svc.ListForUser(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)
}

func TestToggleOpen(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`SET open = NOT open`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(projectRowColumns).
			AddRow(int64(9), "Board", "", false, "user", int64(1), nil, time.Now()))

	p, err := svc.ToggleOpen(context.Background(), 9)
	require.NoError(t, err)
	require.False(t, p.Open)
}

func TestChangeOwner_InvalidCombinationNeverReachesStorage(t *testing.T) {
	svc, _ := newMockService(t)
	current := &membership.ProjectAccess{ProjectID: 9, CreatorID: 1}

	_, err := svc.ChangeOwner(context.Background(), current, OwnerTeam, nil)
	require.ErrorIs(t, err, ErrInvalidOwner)

	_, err = svc.ChangeOwner(context.Background(), current, OwnerUser, lo.ToPtr(int64(3)))
	require.ErrorIs(t, err, ErrInvalidOwner)
}

func TestChangeOwner_SameOwner(t *testing.T) {
	svc, _ := newMockService(t)

	_, err := svc.ChangeOwner(context.Background(), &membership.ProjectAccess{ProjectID: 9, TeamID: lo.ToPtr(int64(3))}, OwnerTeam, lo.ToPtr(int64(3)))
	require.ErrorIs(t, err, ErrSameOwner)

	_, err = svc.ChangeOwner(context.Background(), &membership.ProjectAccess{ProjectID: 9}, OwnerUser, nil)
	require.ErrorIs(t, err, ErrSameOwner)
}

func TestChangeOwner_ToUser(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`UPDATE projects`).
		WithArgs(int64(9), string(OwnerUser), nil).
		WillReturnRows(sqlmock.NewRows(projectRowColumns).
			AddRow(int64(9), "Board", "", true, "user", int64(1), nil, time.Now()))

	p, err := svc.ChangeOwner(context.Background(), &membership.ProjectAccess{ProjectID: 9, TeamID: lo.ToPtr(int64(3))}, OwnerUser, nil)
	require.NoError(t, err)
	require.Equal(t, OwnerUser, p.OwnerType)
	require.Nil(t, p.TeamID)
}

func TestDelete_RemovesChildrenFirst(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM task_users`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM project_tasks`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM project_columns`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM projects`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Delete(context.Background(), 9))
}

func TestDelete_RollsBackOnFailure(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM task_users`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM project_tasks`).WithArgs(int64(9)).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), 9)
	require.Error(t, err)
	require.Equal(t, apperrors.KindServerError, apperrors.KindOf(err))
}

func TestDelete_Missing(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM task_users`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM project_tasks`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM project_columns`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM projects`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	require.ErrorIs(t, svc.Delete(context.Background(), 9), membership.ErrProjectNotFound)
}
