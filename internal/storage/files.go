// Package storage owns the on-disk layout: saved uploads, per-job
// scoped workspaces, and finalized subtitle documents.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// SaveUpload stores an uploaded file under uploadDir, named by the job id
// to avoid collisions, and returns the stored path.
func SaveUpload(file *multipart.FileHeader, uploadDir string, jobID uuid.UUID) (string, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}
	dst := filepath.Join(uploadDir, jobID.String()+"_"+filepath.Base(file.Filename))
	if err := saveMultipartFile(file, dst); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return dst, nil
}

// CreateWorkspace creates the scoped working directory for one job.
// Everything the pipeline writes mid-flight lives here and is reclaimed
// with the workspace on every exit path.
func CreateWorkspace(workRoot string, jobID uuid.UUID) (string, error) {
	dir := filepath.Join(workRoot, jobID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create workspace: %w", err)
	}
	return dir, nil
}

// RemoveWorkspace deletes a job's workspace.
func RemoveWorkspace(path string) error {
	if path == "" {
		return nil
	}
	return os.RemoveAll(path)
}

// FinalizeSubtitle moves a finished subtitle document from the workspace
// into outputDir. Until this rename a failed job can never expose a
// partial document.
func FinalizeSubtitle(workPath, outputDir string, jobID uuid.UUID, format string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	dst := filepath.Join(outputDir, jobID.String()+"."+format)
	if err := os.Rename(workPath, dst); err != nil {
		// Rename fails across filesystems; fall back to copy.
		if copyErr := copyFile(workPath, dst); copyErr != nil {
			return "", fmt.Errorf("failed to finalize subtitle: %w", copyErr)
		}
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func saveMultipartFile(file *multipart.FileHeader, dst string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = out.ReadFrom(src)
	return err
}
