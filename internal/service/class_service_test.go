package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

func TestClassServiceLifecycle(t *testing.T) {
	f := newFixture(t)
	svc := NewClassService(f.classes, f.users, f.validate, f.publisher, f.dashboards, nil, testLogger())
	ctx := context.Background()

	teacher := f.user(t, "Teacher Ben", models.RoleTeacher)
	student := f.user(t, "Ana", models.RoleStudent)

	_, err := svc.Create(ctx, student, dto.ClassCreateRequest{Name: "Nope"})
	require.ErrorIs(t, err, ErrForbidden)

	created, err := svc.Create(ctx, teacher, dto.ClassCreateRequest{Name: "<b>IT Elective 2</b>", Section: "BSIT 3A"})
	require.NoError(t, err)
	require.Equal(t, "IT Elective 2", created.Name)
	require.Len(t, created.JoinCode, 6)

	joined, err := svc.Join(ctx, student, dto.JoinClassRequest{Code: " " + created.JoinCode + " "})
	require.NoError(t, err)
	require.Empty(t, joined.JoinCode, "students never see the join code")
	require.Equal(t, int64(1), joined.MemberCount)

	_, ok := f.publisher.find(ClassChannel(created.ID), EventClassMemberJoined)
	require.True(t, ok)
	require.True(t, f.dashboards.contains(student.ID))

	again, err := svc.Join(ctx, student, dto.JoinClassRequest{Code: created.JoinCode})
	require.NoError(t, err)
	require.Equal(t, int64(1), again.MemberCount)

	_, err = svc.Join(ctx, student, dto.JoinClassRequest{Code: "ZZZZZZ"})
	require.ErrorIs(t, err, ErrJoinCodeNotFound)

	list, err := svc.List(ctx, student)
	require.NoError(t, err)
	require.Len(t, list, 1)

	members, err := svc.Members(ctx, teacher, created.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, "Ana", members[0].Name)

	_, err = svc.Members(ctx, student, created.ID)
	require.ErrorIs(t, err, ErrForbidden)

	regenerated, err := svc.RegenerateCode(ctx, teacher, created.ID)
	require.NoError(t, err)
	require.NotEqual(t, created.JoinCode, regenerated.JoinCode)

	require.NoError(t, svc.Leave(ctx, student, created.ID))
	require.ErrorIs(t, svc.Leave(ctx, student, created.ID), ErrNotClassMember)

	_, err = svc.Get(ctx, student, created.ID)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Delete(ctx, teacher, created.ID))
	_, err = svc.Get(ctx, teacher, created.ID)
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestClassServiceUpdateRequiresOwner(t *testing.T) {
	f := newFixture(t)
	svc := NewClassService(f.classes, f.users, f.validate, nil, nil, nil, testLogger())
	ctx := context.Background()

	owner := f.user(t, "Owner", models.RoleTeacher)
	other := f.user(t, "Other", models.RoleTeacher)
	coordinator := f.user(t, "Coordinator", models.RoleCoordinator)
	class := f.class(t, owner)

	name := "Renamed"
	_, err := svc.Update(ctx, other, class.ID, dto.ClassUpdateRequest{Name: &name})
	require.ErrorIs(t, err, ErrForbidden)

	allow := true
	updated, err := svc.Update(ctx, coordinator, class.ID, dto.ClassUpdateRequest{Name: &name, AllowStudentUploads: &allow})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.True(t, updated.AllowStudentUploads)
}

func TestClassServiceParentSeesChildClasses(t *testing.T) {
	f := newFixture(t)
	svc := NewClassService(f.classes, f.users, f.validate, nil, nil, nil, testLogger())
	ctx := context.Background()

	teacher := f.user(t, "Teacher", models.RoleTeacher)
	parent := f.user(t, "Parent", models.RoleParent)
	child := f.user(t, "Child", models.RoleStudent)
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", child.ID).Update("parent_id", parent.ID).Error)

	class := f.class(t, teacher, child)

	list, err := svc.List(ctx, parent)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, class.ID, list[0].ID)

	got, err := svc.Get(ctx, parent, class.ID)
	require.NoError(t, err)
	require.Empty(t, got.JoinCode)
}
