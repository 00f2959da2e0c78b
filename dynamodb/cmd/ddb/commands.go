package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/rs/zerolog"

	"github.com/acksell/colldb/dynamodb/attr"
	"github.com/acksell/colldb/dynamodb/keys"
	"github.com/acksell/colldb/dynamodb/logging"
	"github.com/acksell/colldb/dynamodb/model"
	"github.com/acksell/colldb/dynamodb/query"
	"github.com/acksell/colldb/dynamodb/schema"
)

func parseFlags(fs *flag.FlagSet, args []string, stderr io.Writer) error {
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	return nil
}

// session is what plan, query and put start from: the configuration and the
// service of one schema.
type session struct {
	cfg    Config
	log    zerolog.Logger
	schema *schema.Schema
	svc    *model.Service
}

func openSession(dir, schemaPath string, stderr io.Writer) (*session, error) {
	cfg, err := LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	if schemaPath != "" {
		cfg.Schema = schemaPath
	}
	log, err := logging.New(cfg.Log, stderr)
	if err != nil {
		return nil, err
	}
	if cfg.Schema == "" {
		found, err := DiscoverSchemas(dir)
		if err != nil {
			return nil, err
		}
		if len(found) != 1 {
			return nil, fmt.Errorf("no schema configured and %d %s files found; use --schema", len(found), schemaFilename)
		}
		cfg.Schema = found[0]
	}
	s, svc, err := buildSchema(cfg, cfg.Schema, log)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, log: log, schema: s, svc: svc}, nil
}

func buildSchema(cfg Config, path string, log zerolog.Logger) (*schema.Schema, *model.Service, error) {
	s, err := schema.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Table != "" {
		s.Table.Name = cfg.Table
	}
	svc, err := s.Build(model.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, svc, nil
}

func runCheck(ctx context.Context, args []string, dir string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	schemaPath := fs.String("schema", "", "definition file (default: the configured schema, else every "+schemaFilename+" below the working directory)")
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log, stderr)
	if err != nil {
		return err
	}
	var paths []string
	switch {
	case *schemaPath != "":
		paths = []string{*schemaPath}
	case cfg.Schema != "":
		paths = []string{cfg.Schema}
	default:
		if paths, err = DiscoverSchemas(dir); err != nil {
			return err
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s files found below %s", schemaFilename, dir)
	}

	failed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, svc, err := buildSchema(cfg, path, log)
		if err != nil {
			fmt.Fprintf(stdout, "FAIL %v\n", err)
			failed++
			continue
		}
		fmt.Fprintf(stdout, "ok   %s: service %q, table %q, %d entities\n", path, svc.Name(), svc.Table(), len(svc.Entities()))
		for _, c := range svc.Registry().Collections() {
			fmt.Fprintf(stdout, "     collection %q %s on %s: %s\n",
				c.Name, c.Kind.Normalize(), c.Identity, strings.Join(c.Entities(), ", "))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d schemas failed", failed, len(paths))
	}
	return nil
}

type queryFlags struct {
	schema     string
	entity     string
	index      string
	collection string
	op         string
	bound      string
	upper      string
	limit      int
	descending bool
	all        bool
}

func (f *queryFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.schema, "schema", "", "definition file (default: the configured schema)")
	fs.StringVar(&f.entity, "entity", "", "entity to query")
	fs.StringVar(&f.index, "index", "", "index of the entity (default: its table index)")
	fs.StringVar(&f.collection, "collection", "", "collection to query instead of an entity")
	fs.StringVar(&f.op, "op", "", "sort key operator: begins_with, gt, gte, lt, lte or between")
	fs.StringVar(&f.bound, "bound", "", "operator bound as attr=value[,attr=value], the lower bound for between")
	fs.StringVar(&f.upper, "upper", "", "upper bound for between")
	fs.IntVar(&f.limit, "limit", 0, "items read per request")
	fs.BoolVar(&f.descending, "desc", false, "read in descending sort key order")
}

// request is a query built from flags; exactly one of entity and collection
// is set.
type request struct {
	entity     *model.EntityQuery
	collection *model.CollectionQuery
}

func (r request) Plan() (*query.Plan, error) {
	if r.entity != nil {
		return r.entity.Plan()
	}
	return r.collection.Plan()
}

func (s *session) request(f *queryFlags, args []string) (request, error) {
	if (f.entity == "") == (f.collection == "") {
		return request{}, fmt.Errorf("%w: exactly one of --entity and --collection is required", errUsage)
	}
	lookup, err := s.lookup(f)
	if err != nil {
		return request{}, err
	}
	values, err := parseValues(lookup, args)
	if err != nil {
		return request{}, err
	}
	op, err := query.ParseOperator(f.op)
	if err != nil {
		return request{}, err
	}
	var bounds []keys.Values
	for _, b := range []string{f.bound, f.upper} {
		if b == "" {
			continue
		}
		v, err := parseValues(lookup, strings.Split(b, ","))
		if err != nil {
			return request{}, err
		}
		bounds = append(bounds, v)
	}
	if f.limit < 0 {
		return request{}, fmt.Errorf("%w: --limit must not be negative", errUsage)
	}

	if f.collection != "" {
		q := s.svc.Collection(f.collection, values).Where(op, bounds...).WithLimit(int32(f.limit))
		if f.descending {
			q.WithDescending()
		}
		return request{collection: q}, nil
	}
	e, err := s.svc.Entity(f.entity)
	if err != nil {
		return request{}, err
	}
	indexName := f.index
	if indexName == "" {
		indexName = tableIndex(e)
	}
	q := e.Query(indexName, values).Where(op, bounds...).WithLimit(int32(f.limit))
	if f.descending {
		q.WithDescending()
	}
	return request{entity: q}, nil
}

func tableIndex(e *model.Entity) string {
	for _, d := range e.Indexes() {
		if d.Index == "" {
			return d.Name
		}
	}
	return ""
}

// lookup resolves attribute names against the entity, or against every
// member of the collection.
func (s *session) lookup(f *queryFlags) (func(string) (attr.Attribute, bool), error) {
	if f.collection == "" {
		e, err := s.svc.Entity(f.entity)
		if err != nil {
			return nil, err
		}
		return e.Catalog().Get, nil
	}
	c, err := s.svc.Registry().Collection(f.collection)
	if err != nil {
		return nil, err
	}
	return func(name string) (attr.Attribute, bool) {
		for _, m := range c.Members {
			if a, ok := m.Entity.Catalog().Get(name); ok {
				return a, true
			}
		}
		return attr.Attribute{}, false
	}, nil
}

// parseValues reads attr=value pairs, typing each value by its attribute.
func parseValues(lookup func(string) (attr.Attribute, bool), args []string) (keys.Values, error) {
	values := make(keys.Values, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q is not attr=value", errUsage, arg)
		}
		a, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w %q", keys.ErrUnknownAttribute, name)
		}
		v, err := keys.ParseValue(a, raw)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return values, nil
}

func runPlan(_ context.Context, args []string, dir string, stdout, stderr io.Writer) error {
	var f queryFlags
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	f.register(fs)
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}
	s, err := openSession(dir, f.schema, stderr)
	if err != nil {
		return err
	}
	req, err := s.request(&f, fs.Args())
	if err != nil {
		return err
	}
	p, err := req.Plan()
	if err != nil {
		return err
	}

	indexName := p.Index
	if indexName == "" {
		indexName = "(table)"
	}
	fmt.Fprintf(stdout, "table:     %s\n", s.svc.Table())
	fmt.Fprintf(stdout, "index:     %s\n", indexName)
	fmt.Fprintf(stdout, "partition: %s = %q\n", p.PartitionKeyField, p.PartitionKey)
	if p.SortKey != nil {
		fmt.Fprintf(stdout, "sort:      %s %s\n", p.SortKeyField, p.SortKey)
	} else {
		fmt.Fprintln(stdout, "sort:      (whole partition)")
	}
	return nil
}

func runQuery(ctx context.Context, args []string, dir string, stdout, stderr io.Writer) error {
	var f queryFlags
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	f.register(fs)
	fs.BoolVar(&f.all, "all", false, "follow cursors until every item is read")
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}
	s, err := openSession(dir, f.schema, stderr)
	if err != nil {
		return err
	}
	req, err := s.request(&f, fs.Args())
	if err != nil {
		return err
	}
	b, err := openBackend(ctx, s.cfg, s.schema.TableDefinition(), s.log)
	if err != nil {
		return err
	}
	defer b.close()

	var out any
	if req.entity != nil {
		run := req.entity.Go
		if f.all {
			run = req.entity.All
		}
		res, err := run(ctx, b.store)
		if err != nil {
			return err
		}
		if out, err = entityOutput(res); err != nil {
			return err
		}
	} else {
		run := req.collection.Go
		if f.all {
			run = req.collection.All
		}
		res, err := run(ctx, b.store)
		if err != nil {
			return err
		}
		if out, err = collectionOutput(res); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type entityJSON struct {
	Items  []map[string]any `json:"items"`
	Cursor map[string]any   `json:"cursor,omitempty"`
}

type collectionJSON struct {
	Data   map[string][]map[string]any `json:"data"`
	Cursor map[string]any              `json:"cursor,omitempty"`
}

func entityOutput(res *model.EntityResult) (*entityJSON, error) {
	items, err := plainItems(res.Data)
	if err != nil {
		return nil, err
	}
	out := &entityJSON{Items: items}
	if res.Cursor != nil {
		if err := attributevalue.UnmarshalMap(res.Cursor, &out.Cursor); err != nil {
			return nil, fmt.Errorf("decode cursor: %w", err)
		}
	}
	return out, nil
}

func collectionOutput(res *model.CollectionResult) (*collectionJSON, error) {
	out := &collectionJSON{Data: make(map[string][]map[string]any, len(res.Data))}
	for name, items := range res.Data {
		plain, err := plainItems(items)
		if err != nil {
			return nil, err
		}
		out.Data[name] = plain
	}
	if res.Cursor != nil {
		if err := attributevalue.UnmarshalMap(res.Cursor, &out.Cursor); err != nil {
			return nil, fmt.Errorf("decode cursor: %w", err)
		}
	}
	return out, nil
}

func plainItems(items []model.Item) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		var m map[string]any
		if err := attributevalue.UnmarshalMap(item, &m); err != nil {
			return nil, fmt.Errorf("decode item: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func runPut(ctx context.Context, args []string, dir string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	schemaPath := fs.String("schema", "", "definition file (default: the configured schema)")
	entity := fs.String("entity", "", "entity to write")
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}
	if *entity == "" {
		return fmt.Errorf("%w: --entity is required", errUsage)
	}
	s, err := openSession(dir, *schemaPath, stderr)
	if err != nil {
		return err
	}
	e, err := s.svc.Entity(*entity)
	if err != nil {
		return err
	}
	values, err := parseValues(e.Catalog().Get, fs.Args())
	if err != nil {
		return err
	}
	item, err := e.Item(values)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, s.cfg, s.schema.TableDefinition(), s.log)
	if err != nil {
		return err
	}
	defer b.close()
	if b.local == nil {
		return fmt.Errorf("put only writes to the %s backend", backendLocal)
	}
	if err := b.local.PutItem(ctx, s.svc.Table(), item); err != nil {
		return err
	}

	written, err := e.Keys(values)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(written)
}
