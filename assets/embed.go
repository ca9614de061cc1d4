package assets

import "embed"

// Embedded default datasets, one JSON file per game.
// Used when no CATALOG_DIR override is configured, so the server
// always has something to serve.

//go:embed f1.json futbol.json
var FS embed.FS

var datasetFiles = []string{"f1.json", "futbol.json"}

// Datasets returns the raw bytes of every embedded dataset.
func Datasets() ([][]byte, error) {
	out := make([][]byte, 0, len(datasetFiles))
	for _, name := range datasetFiles {
		data, err := FS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}
