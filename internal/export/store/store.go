// Package store writes reconstructed records into a single-file SQLite
// element store. Every record becomes one JSON element with a "type"
// discriminator and an id of the form "<type>--<uuid>". Closing the store
// creates one view per type so the elements can be queried as tables.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"crawshaw.io/sqlite"
	"github.com/fatih/structs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stoewer/go-strcase"
	"github.com/tidwall/gjson"
)

const (
	storeVersion  = 1
	applicationID = 1634558819
	discriminator = "type"
)

var (
	// ErrStoreExists is returned by Create when the target file exists.
	ErrStoreExists = errors.New("store already exists")
	// ErrStoreNotExists is returned by Open when the target file is missing.
	ErrStoreNotExists = errors.New("store does not exist")
)

// Element is one JSON document in the store.
type Element []byte

// Store is an open element store.
type Store struct {
	conn  *sqlite.Conn
	runID string
	types map[string]map[string]struct{}
}

// Create makes a new store at path. It refuses to overwrite.
func Create(path string) (*Store, error) {
	return open(path, true)
}

// Open opens an existing store.
func Open(path string) (*Store, error) {
	return open(path, false)
}

func open(path string, create bool) (*Store, error) {
	_, err := os.Stat(path)
	exists := err == nil
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "stat store")
	}
	if create && exists {
		return nil, ErrStoreExists
	}
	if !create && !exists {
		return nil, ErrStoreNotExists
	}
	if create {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, errors.Wrap(err, "create store directory")
		}
	}

	conn, err := sqlite.OpenConn(path, 0)
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	s := &Store{conn: conn, types: make(map[string]map[string]struct{})}

	if create {
		err = s.init()
	} else {
		err = s.check()
	}
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if err := s.setPragma("application_id", applicationID); err != nil {
		return err
	}
	if err := s.setPragma("user_version", storeVersion); err != nil {
		return err
	}
	return s.exec("CREATE TABLE `elements` (id TEXT PRIMARY KEY, json TEXT NOT NULL, insert_time TEXT NOT NULL)")
}

func (s *Store) check() error {
	id, err := s.pragma("application_id")
	if err != nil {
		return errors.Wrap(err, "read application_id")
	}
	if id != applicationID {
		return fmt.Errorf("wrong file format (application_id is %d, requires %d)", id, applicationID)
	}
	version, err := s.pragma("user_version")
	if err != nil {
		return errors.Wrap(err, "read user_version")
	}
	if version != storeVersion {
		return fmt.Errorf("wrong file format (user_version is %d, requires %d)", version, storeVersion)
	}
	return nil
}

// SetRunID stamps every element inserted afterwards with run_id.
func (s *Store) SetRunID(id string) { s.runID = id }

// Insert adds a single element. The element must carry a type; an id is
// generated when it has none.
func (s *Store) Insert(element Element) (string, error) {
	typ := gjson.GetBytes(element, discriminator)
	if !typ.Exists() || typ.String() == "" {
		return "", errors.New("element requires type")
	}

	fields := map[string]interface{}{}
	if err := json.Unmarshal(element, &fields); err != nil {
		return "", errors.Wrap(err, "unmarshal element")
	}
	id := gjson.GetBytes(element, "id").String()
	if id == "" {
		id = typ.String() + "--" + uuid.New().String()
		fields["id"] = id
	}
	if s.runID != "" {
		if _, ok := fields["run_id"]; !ok {
			fields["run_id"] = s.runID
		}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", errors.Wrap(err, "marshal element")
	}

	s.addType(typ.String(), fields)

	stmt, err := s.conn.Prepare("INSERT INTO `elements` (id, json, insert_time) VALUES ($id, $json, $time)")
	if err != nil {
		return "", errors.Wrap(err, "prepare insert")
	}
	defer stmt.Reset()
	stmt.SetText("$id", id)
	stmt.SetText("$json", string(data))
	stmt.SetText("$time", time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	if _, err := stmt.Step(); err != nil {
		return "", errors.Wrapf(err, "insert %s", id)
	}
	return id, nil
}

// InsertStruct converts a Go struct to a snake_case map, tags it with typ
// and inserts it. Empty strings and nil pointers are left out.
func (s *Store) InsertStruct(typ string, v interface{}) (string, error) {
	m, ok := lower(structs.Map(v)).(map[string]interface{})
	if !ok {
		return "", errors.New("struct did not convert to a map")
	}
	m[discriminator] = typ
	return s.insertMap(m)
}

func (s *Store) insertMap(m map[string]interface{}) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", errors.Wrapf(err, "marshal %v", m[discriminator])
	}
	return s.Insert(data)
}

// Get retrieves a single element by id.
func (s *Store) Get(id string) (Element, error) {
	stmt, err := s.conn.Prepare("SELECT json FROM `elements` WHERE id = $id")
	if err != nil {
		return nil, err
	}
	stmt.SetText("$id", id)
	elements, err := rowsToElements(stmt)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, errors.Errorf("element %s does not exist", id)
	}
	return elements[0], nil
}

// Select returns every element of typ in insertion order.
func (s *Store) Select(typ string) ([]Element, error) {
	stmt, err := s.conn.Prepare("SELECT json FROM `elements` WHERE json_extract(json, '$." +
		discriminator + "') = $type ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	stmt.SetText("$type", typ)
	return rowsToElements(stmt)
}

// All returns every element in insertion order.
func (s *Store) All() ([]Element, error) {
	stmt, err := s.conn.Prepare("SELECT json FROM `elements` ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	return rowsToElements(stmt)
}

// Begin opens a transaction around a batch of inserts.
func (s *Store) Begin() error { return s.exec("BEGIN") }

// Commit ends the transaction opened by Begin.
func (s *Store) Commit() error { return s.exec("COMMIT") }

// Rollback abandons the open transaction.
func (s *Store) Rollback() error { return s.exec("ROLLBACK") }

// Close creates the per-type views and closes the database.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	verr := s.createViews()
	cerr := s.conn.Close()
	s.conn = nil
	if verr != nil {
		return errors.Wrap(verr, "create views")
	}
	return cerr
}

func (s *Store) addType(typ string, fields map[string]interface{}) {
	cols, ok := s.types[typ]
	if !ok {
		cols = make(map[string]struct{})
		s.types[typ] = cols
	}
	for k := range fields {
		cols[k] = struct{}{}
	}
}

func (s *Store) createViews() error {
	for typ, fields := range s.types {
		if err := s.exec(fmt.Sprintf("DROP VIEW IF EXISTS '%s'", typ)); err != nil {
			return err
		}
		columns := make([]string, 0, len(fields))
		for field := range fields {
			columns = append(columns, fmt.Sprintf("json_extract(json, '$.%s') as '%s'", field, field))
		}
		sort.Strings(columns)
		err := s.exec(fmt.Sprintf("CREATE VIEW '%s' AS SELECT %s FROM elements WHERE json_extract(json, '$.%s') = '%s'",
			typ, strings.Join(columns, ", "), discriminator, typ))
		if err != nil {
			return err
		}
	}
	return nil
}

func rowsToElements(stmt *sqlite.Stmt) ([]Element, error) {
	elements := []Element{}
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			stmt.Finalize()
			return nil, err
		}
		if !hasRow {
			break
		}
		elements = append(elements, Element(stmt.GetText("json")))
	}
	return elements, stmt.Finalize()
}

func (s *Store) exec(query string) error {
	stmt, err := s.conn.Prepare(query)
	if err != nil {
		return err
	}
	if _, err := stmt.Step(); err != nil {
		stmt.Finalize()
		return err
	}
	return stmt.Finalize()
}

func (s *Store) pragma(name string) (int64, error) {
	stmt, err := s.conn.Prepare("PRAGMA " + name)
	if err != nil {
		return 0, err
	}
	if _, err := stmt.Step(); err != nil {
		stmt.Finalize()
		return 0, err
	}
	i := stmt.GetInt64(name)
	return i, stmt.Finalize()
}

func (s *Store) setPragma(name string, i int64) error {
	return s.exec(fmt.Sprintf("PRAGMA %s = %d", name, i))
}

func lower(f interface{}) interface{} {
	switch f := f.(type) {
	case []interface{}:
		for i := range f {
			f[i] = lower(f[i])
		}
		return f
	case []map[string]interface{}:
		out := make([]interface{}, len(f))
		for i := range f {
			out[i] = lower(f[i])
		}
		return out
	case map[string]interface{}:
		lf := make(map[string]interface{}, len(f))
		for k, v := range f {
			if isEmptyValue(reflect.ValueOf(v)) {
				continue
			}
			lf[strcase.SnakeCase(k)] = lower(v)
		}
		return lf
	default:
		return f
	}
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}
