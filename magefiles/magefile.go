//go:build mage

// Package main provides build targets for the librestore project using Mage.
//
// Usage:
//
//	mage build      Compile librestore binary to bin/
//	mage test       Run all tests
//	mage race       Run all tests with the race detector
//	mage lint       Run golangci-lint
//	mage fixture    Write a sample backup to testdata/
//	mage clean      Remove build artifacts
//	mage install    Install librestore to GOPATH/bin
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	"github.com/mesh-intelligence/librestore/internal/backup"
	"github.com/mesh-intelligence/librestore/pkg/types"
)

const (
	binGo       = "go"
	binLint     = "golangci-lint"
	binaryName  = "librestore"
	binaryDir   = "bin"
	cmdDir      = "./cmd/librestore"
	fixturePath = "testdata/sample.lrbk"
)

// Build compiles the librestore binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests.
func Test() error {
	return sh.RunV(binGo, "test", "./...")
}

// Race runs all tests with the race detector.
func Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

// Fixture writes a small backup for trying "librestore restore" by hand.
func Fixture() error {
	if err := os.MkdirAll(filepath.Dir(fixturePath), 0o755); err != nil {
		return err
	}
	reading := "Reading"
	b := &types.Backup{
		Sources: []types.BackupSource{{SourceID: 2499283573021220255, Name: "MangaDex"}},
		Categories: []types.BackupCategory{
			{Name: "Reading", Order: 1, ID: 1},
			{Name: "Weekly", Order: 2, ID: 2, ParentName: &reading},
			{Name: "Completed", Order: 3, ID: 3, Flags: 64},
		},
		Preferences: []types.BackupPreference{
			{Key: "default_category", Value: json.RawMessage(`2`)},
			{Key: "library_update_categories", Value: json.RawMessage(`["1","2"]`)},
		},
		ExtensionRepos: []types.BackupExtensionRepo{{
			BaseURL:               "https://repo.example/index.min.json",
			Name:                  "Example",
			Website:               "https://repo.example",
			SigningKeyFingerprint: "9add655a78e96c4ec7a53ef89dccb557cb5d767489fac5e785d671a5a75d4da2",
		}},
	}
	for i := 1; i <= 20; i++ {
		b.Manga = append(b.Manga, types.BackupManga{
			Source:         2499283573021220255,
			URL:            fmt.Sprintf("/title/%d", i),
			Title:          fmt.Sprintf("Sample %02d", i),
			Favorite:       true,
			LastModifiedAt: int64(1700000000000 + i),
			Categories:     []int64{int64(1 + i%3)},
			Chapters: []types.BackupChapter{
				{URL: fmt.Sprintf("/chapter/%d-1", i), Name: "Ch. 1", ChapterNumber: 1, Read: i%2 == 0},
				{URL: fmt.Sprintf("/chapter/%d-2", i), Name: "Ch. 2", ChapterNumber: 2},
			},
		})
	}
	if err := backup.WriteFile(fixturePath, b); err != nil {
		return err
	}
	fmt.Println("wrote", fixturePath)
	return nil
}
