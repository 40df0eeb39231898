package util_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wkalt/ckpt/catalog"
	"github.com/wkalt/ckpt/cli/util"
)

func TestEntryTable(t *testing.T) {
	pushedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	table := util.EntryTable([]catalog.Entry{
		{Name: "traces/kernel", ID: "a1", Checkpoints: 1000, NbEvents: 100000, PushedAt: pushedAt, Store: "dir"},
		{Name: "x", ID: "b2", Checkpoints: 1, NbEvents: 7, PushedAt: pushedAt, Store: "s3"},
	})

	t.Run("columns", func(t *testing.T) {
		buf := &bytes.Buffer{}
		table.Print(buf, 200)
		expected := "" +
			"| Name          | ID | Checkpoints | Events | Pushed At            | Store |\n" +
			"|---------------|----|-------------|--------|----------------------|-------|\n" +
			"| traces/kernel | a1 | 1000        | 100000 | 2024-01-02T03:04:05Z | dir   |\n" +
			"| x             | b2 | 1           | 7      | 2024-01-02T03:04:05Z | s3    |\n"
		assert.Equal(t, expected, buf.String())
		assert.Equal(t, len("| Name          | ID | Checkpoints | Events | Pushed At            | Store |"), table.Width())
	})
	t.Run("records when too wide", func(t *testing.T) {
		buf := &bytes.Buffer{}
		table.Print(buf, 40)
		dashes := "----------------------"
		expected := "" +
			"-[ 1 ]------+" + dashes + "\n" +
			"Name        | traces/kernel\n" +
			"ID          | a1\n" +
			"Checkpoints | 1000\n" +
			"Events      | 100000\n" +
			"Pushed At   | 2024-01-02T03:04:05Z\n" +
			"Store       | dir\n" +
			"-[ 2 ]------+" + dashes + "\n" +
			"Name        | x\n" +
			"ID          | b2\n" +
			"Checkpoints | 1\n" +
			"Events      | 7\n" +
			"Pushed At   | 2024-01-02T03:04:05Z\n" +
			"Store       | s3\n"
		assert.Equal(t, expected, buf.String())
	})
}
