package clicks

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/flatfile"
)

func writeGz(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clicks.csv.gz")
	w, err := flatfile.Create(path)
	require.NoError(t, err)
	_, err = w.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, w.Commit())
	return path
}

func TestReadAllTrainAndTest(t *testing.T) {
	train := writeGz(t, "display_id,ad_id,clicked\n1,100,1\n1,101,0\n")
	rows, err := ReadAll(train)
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{DisplayID: 1, AdID: 100, Clicked: 1, HasLabel: true},
		{DisplayID: 1, AdID: 101, Clicked: 0, HasLabel: true},
	}, rows)

	test := writeGz(t, "display_id,ad_id\n2,200\n")
	rows, err = ReadAll(test)
	require.NoError(t, err)
	assert.Equal(t, []Row{{DisplayID: 2, AdID: 200}}, rows)
}

func TestReadAllRejectsBadRows(t *testing.T) {
	for name, content := range map[string]string{
		"non numeric ad": "display_id,ad_id\n1,abc\n",
		"bad label":      "display_id,ad_id,clicked\n1,100,2\n",
		"short row":      "display_id,ad_id\n1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadAll(writeGz(t, content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrParse))
		})
	}
}

func TestReadAllMissingFile(t *testing.T) {
	_, err := ReadAll(filepath.Join(t.TempDir(), "clicks_test.csv.gz"))
	assert.True(t, errors.Is(err, apperrors.ErrFileNotFound))
}
