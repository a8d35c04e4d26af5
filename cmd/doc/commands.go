package doc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ValentinKolb/sDB/cmd/util"
	"github.com/ValentinKolb/sDB/lib/serializer"
	"github.com/ValentinKolb/sDB/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	existsCmd = &cobra.Command{
		Use:   "exists [collection] [id]",
		Short: "Checks if a document exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			exists, err := docStore.Exists(args[0], args[1])
			if err != nil {
				return err
			}
			if exists {
				fmt.Println(util.Success("%s/%s exists", args[0], args[1]))
			} else {
				fmt.Println(util.Failure("%s/%s does not exist", args[0], args[1]))
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [collection] [id]",
		Short: "Prints a document as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := docStore.Get(args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(doc)
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [collection] [id] [json]",
		Short: "Inserts a document or merges fields into an existing one",
		Long: `Inserts a document or merges fields into an existing one.
Top-level fields overwrite existing fields, all other fields are kept.
With --hash-id the id argument is omitted and computed as the SHA-256 of the given field.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashField := viper.GetString("hash-id")

			var collection, id, text string
			switch {
			case hashField != "" && len(args) == 2:
				collection, text = args[0], args[1]
			case hashField == "" && len(args) == 3:
				collection, id, text = args[0], args[1], args[2]
			default:
				return fmt.Errorf("expected [collection] [id] [json] or [collection] [json] with --hash-id")
			}

			doc, err := util.ParseDocument(text)
			if err != nil {
				return err
			}

			if hashField != "" {
				if id, err = util.HashID(doc, hashField); err != nil {
					return err
				}
			}

			if err := docStore.Set(collection, id, doc); err != nil {
				return err
			}
			fmt.Println(util.Success("set %s/%s", collection, id))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [collection] [id]",
		Short: "Deletes a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := docStore.Delete(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println(util.Success("deleted %s/%s", args[0], args[1]))
			return nil
		},
	}
	allCmd = &cobra.Command{
		Use:   "all [collection]",
		Short: "Prints all documents of a collection as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := docStore.All(args[0])
			if err != nil {
				return err
			}
			return printJSON(docs)
		},
	}
	findCmd = &cobra.Command{
		Use:   "find [collection] [json-pattern]",
		Short: "Prints the ids of all documents matching the pattern",
		Long: `Prints the ids of all documents matching the pattern.
Every field of the pattern must exist in the document. Scalars must be equal,
every element of a pattern list must be contained in the document list and
objects are matched recursively. The empty pattern {} matches every document.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, err := util.ParseDocument(args[1])
			if err != nil {
				return err
			}
			ids, err := docStore.Find(args[0], pattern)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
	collectionsCmd = &cobra.Command{
		Use:   "collections",
		Short: "Prints the names of all collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := docStore.Collections()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Exports the decrypted document tree",
		Long: `Exports the decrypted document tree. The json format is meant for inspection,
bson-hex writes the serialized plaintext as hex text.
The output is NOT encrypted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := exportTree(docStore)
			if err != nil {
				return err
			}

			var out []byte
			switch format := viper.GetString("format"); format {
			case "json":
				if out, err = json.MarshalIndent(tree, "", "  "); err != nil {
					return err
				}
			case "bson-hex":
				raw, err := serializer.NewBSONSerializer().Serialize(tree)
				if err != nil {
					return err
				}
				out = []byte(hex.EncodeToString(raw))
			default:
				return fmt.Errorf("invalid export format %s", format)
			}
			out = append(out, '\n')

			path := viper.GetString("out")
			if path == "" {
				_, err = os.Stdout.Write(out)
				return err
			}
			if err := os.WriteFile(path, out, 0o600); err != nil {
				return err
			}
			fmt.Println(util.Success("exported %d collections to %s", len(tree), path))
			return nil
		},
	}
)

func init() {
	key := "hash-id"
	setCmd.Flags().String(key, "", util.WrapString("Compute the document id as the hex SHA-256 of this string field"))

	key = "format"
	exportCmd.Flags().String(key, "json", util.WrapString("Export format (json, bson-hex)"))
	key = "out"
	exportCmd.Flags().String(key, "", util.WrapString("Optional path of the export file (default stdout)"))
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// exportTree collects every collection into one tree
func exportTree(s store.IStore) (map[string]any, error) {
	names, err := s.Collections()
	if err != nil {
		return nil, err
	}

	tree := make(map[string]any, len(names))
	for _, name := range names {
		docs, err := s.All(name)
		if err != nil {
			return nil, err
		}
		c := make(map[string]any, len(docs))
		for id, doc := range docs {
			c[id] = doc
		}
		tree[name] = c
	}
	return tree, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
