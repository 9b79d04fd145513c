package report

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
)

var (
	pivotCachePattern   = regexp.MustCompile(`^xl/pivotCache/pivotCacheDefinition\d*\.xml$`)
	refreshOnLoadAttr   = regexp.MustCompile(`refreshOnLoad="[^"]*"`)
	pivotDefinitionOpen = "<pivotCacheDefinition "
)

// refreshPivotCaches marks every pivot cache of the workbook for refresh on
// open, so the template's pivot sheets pick up the rewritten result table.
// The workbook archive is repacked in place.
func refreshPivotCaches(path string) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open workbook %s", path)
	}
	defer reader.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), "workbook*.xlsx")
	if err != nil {
		return errors.Wrap(err, "failed to create the workbook staging file")
	}
	defer os.Remove(tmp.Name())

	writer := zip.NewWriter(tmp)
	touched := 0
	for _, entry := range reader.File {
		content, err := readZipEntry(entry)
		if err != nil {
			writer.Close()
			tmp.Close()
			return err
		}
		if pivotCachePattern.MatchString(entry.Name) {
			content = []byte(setRefreshOnLoad(string(content)))
			touched++
		}

		header := entry.FileHeader
		target, err := writer.CreateHeader(&header)
		if err != nil {
			writer.Close()
			tmp.Close()
			return errors.Wrapf(err, "failed to repack %s", entry.Name)
		}
		if _, err := target.Write(content); err != nil {
			writer.Close()
			tmp.Close()
			return errors.Wrapf(err, "failed to repack %s", entry.Name)
		}
	}

	if err := writer.Close(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to finish the workbook archive")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close the workbook staging file")
	}
	reader.Close()

	if touched == 0 {
		log.Entry().Debug("workbook has no pivot caches, nothing to refresh")
		return nil
	}
	log.Entry().Debugf("marked %d pivot cache(s) for refresh", touched)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "failed to replace workbook %s", path)
	}
	return nil
}

func readZipEntry(entry *zip.File) ([]byte, error) {
	source, err := entry.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", entry.Name)
	}
	defer source.Close()
	content, err := io.ReadAll(source)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", entry.Name)
	}
	return content, nil
}

// setRefreshOnLoad forces refreshOnLoad="1" on the pivotCacheDefinition
// element, adding the attribute when the template omits it.
func setRefreshOnLoad(content string) string {
	if refreshOnLoadAttr.MatchString(content) {
		return refreshOnLoadAttr.ReplaceAllString(content, `refreshOnLoad="1"`)
	}
	return strings.Replace(content, pivotDefinitionOpen, pivotDefinitionOpen+`refreshOnLoad="1" `, 1)
}
