package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/phanxgames/sketchboard"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <document-id|file.json>",
	Short: "Summarize the sheets of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var revisionsLimit int

var revisionsCmd = &cobra.Command{
	Use:   "revisions <document-id>",
	Short: "List recorded revisions of a document, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runRevisions,
}

func init() {
	revisionsCmd.Flags().IntVarP(&revisionsLimit, "limit", "n", 20, "Maximum revisions to show (0 for all)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	var body []byte
	var err error
	if isJSONFile(args[0]) {
		body, err = loadDocument(ctx, nil, args[0])
	} else {
		database, docs, oerr := openStore()
		if oerr != nil {
			return oerr
		}
		defer database.Close()
		body, err = loadDocument(ctx, docs, args[0])
	}
	if err != nil {
		return err
	}
	doc, err := sketchboard.ParseDocument(body)
	if err != nil {
		return err
	}
	return summarize(cmd.OutOrStdout(), doc)
}

func isJSONFile(ref string) bool {
	return len(ref) > 5 && ref[len(ref)-5:] == ".json"
}

// summarize writes one line per sheet: entity counts, history position and
// viewport.
func summarize(w io.Writer, doc *sketchboard.Document) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tNODES\tCONNECTIONS\tPAINT\tHISTORY\tZOOM\t")
	for i, s := range doc.Sheets {
		active := " "
		if i == doc.Active {
			active = "*"
		}
		fmt.Fprintf(tw, "%s%d\t%s\t%d\t%d\t%d\t%d/%d\t%.0f%%\t\n",
			active, i+1, s.Name,
			len(s.Nodes), len(s.Connections), len(s.PaintActions),
			s.History.Index, s.History.Len(),
			s.View.Scale*100,
		)
	}
	return tw.Flush()
}

func runList(cmd *cobra.Command, args []string) error {
	database, docs, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	recs, err := docs.List(context.Background())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSHEETS\tUPDATED\t")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t\n", r.ID, r.Name, r.SheetCount, r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runRevisions(cmd *cobra.Command, args []string) error {
	database, docs, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	revs, err := docs.Revisions(context.Background(), args[0], revisionsLimit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REV\tREASON\tBYTES\tAT\t")
	for _, r := range revs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t\n", r.ID, r.Reason, len(r.Body), r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
