package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

func TestResourceServiceUploadAndDelete(t *testing.T) {
	f := newFixture(t)
	storage := &storageStub{}
	svc := NewResourceService(f.resources, f.classes, f.users, storage, 1<<20, f.validate, f.publisher, testLogger())
	ctx := context.Background()

	teacher := f.user(t, "Teacher", models.RoleTeacher)
	student := f.user(t, "Ana", models.RoleStudent)
	class := f.class(t, teacher, student)

	_, err := svc.Upload(ctx, student, class.ID, dto.ResourceUploadRequest{Title: "Notes"}, buildFileHeader(t, "notes.png", pngHeader))
	require.ErrorIs(t, err, ErrForbidden, "students need the class to accept uploads")

	resource, err := svc.Upload(ctx, teacher, class.ID, dto.ResourceUploadRequest{Title: "Week 1 <em>slides</em>"}, buildFileHeader(t, "../../week 1.png", pngHeader))
	require.NoError(t, err)
	require.Equal(t, "Week 1 slides", resource.Title)
	require.Equal(t, "image/png", resource.MimeType)
	require.NotContains(t, resource.FileName, "/")
	require.Equal(t, fmt.Sprintf("classes/%d", class.ID), storage.folder)

	_, ok := f.publisher.find(ClassChannel(class.ID), EventResourceAdded)
	require.True(t, ok)

	listed, err := svc.List(ctx, student, class.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.ErrorIs(t, svc.Delete(ctx, student, resource.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, teacher, resource.ID))
	require.Len(t, storage.deleted, 1)
	require.ErrorIs(t, svc.Delete(ctx, teacher, resource.ID), ErrResourceNotFound)
}

func TestResourceServiceStudentUploads(t *testing.T) {
	f := newFixture(t)
	storage := &storageStub{}
	svc := NewResourceService(f.resources, f.classes, f.users, storage, 1<<20, f.validate, nil, testLogger())
	ctx := context.Background()

	teacher := f.user(t, "Teacher", models.RoleTeacher)
	student := f.user(t, "Ana", models.RoleStudent)
	outsider := f.user(t, "Outsider", models.RoleStudent)
	class := f.class(t, teacher, student)
	require.NoError(t, f.db.Model(&models.Class{}).Where("id = ?", class.ID).Update("allow_student_uploads", true).Error)

	resource, err := svc.Upload(ctx, student, class.ID, dto.ResourceUploadRequest{Title: "Reviewer"}, buildFileHeader(t, "reviewer.txt", []byte("chapter one summary")))
	require.NoError(t, err)
	require.Equal(t, "text/plain", resource.MimeType)

	_, err = svc.Upload(ctx, outsider, class.ID, dto.ResourceUploadRequest{Title: "Spam"}, buildFileHeader(t, "spam.txt", []byte("spam")))
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Delete(ctx, student, resource.ID), "uploaders may remove their own files")
}

func TestFileIntakeValidation(t *testing.T) {
	f := newFixture(t)
	storage := &storageStub{}
	svc := NewResourceService(f.resources, f.classes, f.users, storage, 2048, f.validate, nil, testLogger())
	ctx := context.Background()

	teacher := f.user(t, "Teacher", models.RoleTeacher)
	class := f.class(t, teacher)
	payload := dto.ResourceUploadRequest{Title: "File"}

	_, err := svc.Upload(ctx, teacher, class.ID, payload, nil)
	require.ErrorIs(t, err, ErrFileRequired)

	_, err = svc.Upload(ctx, teacher, class.ID, payload, buildFileHeader(t, "huge.pdf", bytes.Repeat([]byte("a"), 4096)))
	require.ErrorIs(t, err, ErrUploadTooLarge)

	executable := append([]byte("MZ\x90\x00\x03\x00\x00\x00\x04\x00\x00\x00\xff\xff"), make([]byte, 64)...)
	_, err = svc.Upload(ctx, teacher, class.ID, payload, buildFileHeader(t, "setup.png", executable))
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed, "type is sniffed from content, not the file name")

	_, err = svc.Upload(ctx, teacher, class.ID, payload, buildFileHeader(t, "bomb.zip", zipBomb(t)))
	require.ErrorIs(t, err, ErrUploadScanFailed)

	_, err = svc.Upload(ctx, teacher, class.ID, dto.ResourceUploadRequest{}, buildFileHeader(t, "x.png", pngHeader))
	require.True(t, isValidation(err))

	missingStorage := NewResourceService(f.resources, f.classes, f.users, nil, 2048, f.validate, nil, testLogger())
	_, err = missingStorage.Upload(ctx, teacher, class.ID, payload, buildFileHeader(t, "x.png", pngHeader))
	require.ErrorIs(t, err, ErrStorageUnavailable)
}

// zipBomb builds a small archive whose entries expand far beyond the upload limit.
func zipBomb(t *testing.T) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := zip.NewWriter(buf)
	entry, err := writer.Create("zeros.bin")
	require.NoError(t, err)
	_, err = entry.Write(make([]byte, 1<<20))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.Less(t, buf.Len(), 2048)
	return buf.Bytes()
}
