package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/stfwi/rsgauges-sub000/internal/sim/device"
)

// DevicesFile and DevicesSchema are the default file names under the config
// and schema directories.
const (
	DevicesFile   = "devices.json"
	DevicesSchema = "devices.schema.json"
)

type Catalogs struct {
	Devices DeviceCatalog
	Blocks  BlockCategories
}

type DeviceCatalog struct {
	Types map[string]*device.Descriptor
	// IDs holds the accepted type ids, sorted.
	IDs    []string
	Digest string
	// Rejected lists the types that failed descriptor validation. They are
	// skipped, the rest of the catalog still loads.
	Rejected []*device.ConfigurationError
}

type BlockCategories struct {
	ByName map[string]map[string]bool
	Digest string
}

type devicesFile struct {
	Version         string              `json:"version"`
	BlockCategories map[string][]string `json:"block_categories"`
	Types           []device.TypeDef    `json:"types"`
}

type Options struct {
	// SchemaPath enables JSON schema validation of devices.json when set.
	SchemaPath string
	Logger     *log.Logger
}

func Load(configDir string, opts Options) (*Catalogs, error) {
	path := filepath.Join(configDir, DevicesFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if opts.SchemaPath != "" {
		if err := validateSchema(opts.SchemaPath, raw); err != nil {
			return nil, fmt.Errorf("%s: %w", DevicesFile, err)
		}
	}
	return Parse(raw, opts.Logger)
}

// Parse builds the catalogs from the raw devices.json bytes.
func Parse(raw []byte, logger *log.Logger) (*Catalogs, error) {
	var f devicesFile
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: %w", DevicesFile, err)
	}

	var c Catalogs
	c.Devices.Digest = sha256Hex(raw)
	c.Devices.Types = map[string]*device.Descriptor{}
	for _, def := range f.Types {
		d, err := device.NewDescriptor(def)
		if err != nil {
			var ce *device.ConfigurationError
			if !errors.As(err, &ce) {
				return nil, fmt.Errorf("%s: %w", DevicesFile, err)
			}
			c.Devices.Rejected = append(c.Devices.Rejected, ce)
			if logger != nil {
				logger.Printf("catalog: skipping %v", ce)
			}
			continue
		}
		if _, dup := c.Devices.Types[d.TypeID]; dup {
			return nil, fmt.Errorf("%s: duplicate type id %q", DevicesFile, d.TypeID)
		}
		c.Devices.Types[d.TypeID] = d
		c.Devices.IDs = append(c.Devices.IDs, d.TypeID)
	}
	sort.Strings(c.Devices.IDs)

	c.Blocks.ByName = map[string]map[string]bool{}
	names := make([]string, 0, len(f.BlockCategories))
	for name, blocks := range f.BlockCategories {
		set := make(map[string]bool, len(blocks))
		for _, b := range blocks {
			set[strings.TrimSpace(b)] = true
		}
		c.Blocks.ByName[name] = set
		names = append(names, name)
	}
	sort.Strings(names)
	var concat bytes.Buffer
	for _, name := range names {
		members := f.BlockCategories[name]
		sorted := append([]string(nil), members...)
		sort.Strings(sorted)
		b, _ := json.Marshal(sorted)
		concat.WriteString(name)
		concat.Write(b)
		concat.WriteByte('\n')
	}
	c.Blocks.Digest = sha256Hex(concat.Bytes())

	for _, id := range c.Devices.IDs {
		d := c.Devices.Types[id]
		if d.BlockCategory != "" && c.Blocks.ByName[d.BlockCategory] == nil && logger != nil {
			logger.Printf("catalog: %s references unknown block category %q", id, d.BlockCategory)
		}
	}
	return &c, nil
}

func (c *DeviceCatalog) Get(id string) (*device.Descriptor, bool) {
	d, ok := c.Types[id]
	return d, ok
}

// InCategory implements device.CategoryMatcher.
func (b BlockCategories) InCategory(category, block string) bool {
	return b.ByName[category][block]
}

var _ device.CategoryMatcher = BlockCategories{}

func validateSchema(schemaPath string, raw []byte) error {
	schemaRaw, err := os.ReadFile(schemaPath)
	if err != nil {
		return err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(DevicesSchema, bytes.NewReader(schemaRaw)); err != nil {
		return err
	}
	s, err := compiler.Compile(DevicesSchema)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
