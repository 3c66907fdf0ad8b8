package cli

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/sagifyml/sagify/internal/storage"
)

// listJobs implements the jobs command.
func (a *app) listJobs(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}

	path := c.String("db")
	if path == "" {
		path = storage.DefaultPath(c.String("dir"))
	}

	store, err := a.openStore(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Warn("failed to close job ledger", "error", closeErr)
		}
	}()

	var jobs []*storage.Job
	if kind := c.String("kind"); kind != "" {
		jobs, err = store.ListByKind(kind)
	} else {
		jobs, err = store.ListAll()
	}
	if err != nil {
		return err
	}

	renderJobs(a.out, jobs)
	return nil
}

// renderJobs writes the ledger entries as a borderless table.
func renderJobs(out io.Writer, jobs []*storage.Job) {
	table := tablewriter.NewWriter(out)

	table.SetHeader([]string{"Kind", "Name", "Image", "Instance", "Count", "Result", "Launched"})

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding(" ")
	table.SetNoWhiteSpace(false)

	for _, j := range jobs {
		launched := "-"
		if !j.LaunchedAt.IsZero() {
			launched = j.LaunchedAt.Format(time.RFC3339)
		}
		count := "-"
		if j.InstanceCount > 0 {
			count = strconv.FormatInt(int64(j.InstanceCount), 10)
		}
		table.Append([]string{j.Kind, j.Name, j.Image, j.InstanceType, count, j.Result, launched})
	}

	table.Render()
}
