package mode

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/pipeline"
	"github.com/khaledhikmat/df-go/service/lgr"
	"github.com/khaledhikmat/df-go/service/queue"
)

// The monitor scans the input folder for new videos and publishes them so
// they can be picked up by the manager. A video is marked seen only once it
// has been published.
func Monitor(canxCtx context.Context, svcs pipeline.ServicesFactory, _ []string) error {
	folder, err := filepath.Abs(svcs.CfgSvc.GetInputFolder())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return err
	}

	lgr.Logger.Info(
		"monitor watching folder",
		slog.String("folder", folder),
		slog.Int("every", svcs.CfgSvc.GetWatchPeriodicTimeout()),
	)

	seen := map[string]bool{}

	// Wait for cancellation or timeout
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"monitor context cancelled",
			)
			return nil

		case <-time.After(time.Duration(svcs.CfgSvc.GetWatchPeriodicTimeout()) * time.Second):
			refs, err := scanFolder(folder, svcs.CfgSvc.GetVideoExtensions(), seen, svcs.CfgSvc.GetWatchMaxVideos())
			if err != nil {
				procError(svcs.DataSvc, model.GenError("monitor",
					err,
					map[string]interface{}{
						"folder": folder,
					},
					"error scanning input folder"))
				continue
			}

			if len(refs) == 0 {
				continue
			}

			err = svcs.QueueSvc.Publish(refs)
			if errors.Is(err, queue.ErrNoSubscriber) {
				lgr.Logger.Debug(
					"no subscriber yet. Videos remain pending",
					slog.Int("videos", len(refs)),
				)
				continue
			}
			if err != nil {
				procError(svcs.DataSvc, model.GenError("monitor",
					err,
					map[string]interface{}{},
					"error publishing through queue service"))
				continue
			}

			for _, ref := range refs {
				seen[ref] = true
			}

			lgr.Logger.Info(
				"monitor published videos",
				slog.Int("videos", len(refs)),
			)
		}
	}
}

// scanFolder returns up to `limit` unseen video files in name order
func scanFolder(folder string, extensions []string, seen map[string]bool, limit int) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}

	exts := map[string]bool{}
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}

	refs := []string{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !exts[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		ref := filepath.Join(folder, entry.Name())
		if seen[ref] {
			continue
		}
		refs = append(refs, ref)
	}

	sort.Strings(refs)
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}

	return refs, nil
}
