package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/catalog"
	"github.com/mpapenbr/carclash-server/pkg/cmd/util"
	"github.com/mpapenbr/carclash-server/pkg/config"
)

var outputFormat string

func NewCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog [pack files]",
		Short: "validates car packs and lists the resulting catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			util.SetupLogger()
			c, err := buildCatalog(config.CatalogFile, args)
			if err != nil {
				return err
			}
			return writeCatalog(cmd.OutOrStdout(), c, outputFormat)
		},
	}
	cmd.Flags().StringVar(&config.CatalogFile,
		"catalog-file",
		"",
		"car catalog replacing the embedded one")
	cmd.Flags().StringVarP(&outputFormat,
		"output",
		"o",
		"table",
		"output format (table, json)")
	return cmd
}

func buildCatalog(catalogFile string, packs []string) (*catalog.Catalog, error) {
	c := catalog.Default()
	if catalogFile != "" {
		var err error
		if c, err = catalog.LoadFile(catalogFile); err != nil {
			return nil, err
		}
	}
	for _, file := range packs {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		defs, err := catalog.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		added := c.Merge(defs)
		log.Info("pack merged",
			log.String("file", file),
			log.Int("cars", len(defs)),
			log.Int("added", len(added)))
	}
	return c, nil
}

func writeCatalog(w io.Writer, c *catalog.Catalog, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c.ByCategory())
	case "table":
		byCat := c.ByCategory()
		cats := make([]string, 0, len(byCat))
		for k := range byCat {
			cats = append(cats, k)
		}
		sort.Strings(cats)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tID\tNAME\tBRAND\tPRICE\tRARITY")
		for _, cat := range cats {
			for _, d := range byCat[cat] {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					cat, d.ID, d.Name, d.Brand, d.Price, d.Rarity)
			}
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
