package ddbstore

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"maps"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/colldb/dynamodb/model"
	"github.com/acksell/colldb/dynamodb/table"
)

// Key layout, with every value escaped so it never contains the separator:
//
//	table:  <table> 0x00 S<pk> 0x00 [S<sk>]
//	gsi:    <table>$gsi:<name> 0x00 S<pk> 0x00 [S<sk>] 0x00 S<table pk> 0x00 [S<table sk>]
//
// The separator is the smallest byte, so keys of one partition sort by their
// sort key. GSI keys carry the table key so items sharing GSI keys coexist.
const (
	keySeparator  byte = 0x00
	keyTypeString byte = 'S'
	gsiMarker          = "$gsi:"
)

// keyCeiling sorts after every encoded sort key.
const keyCeiling byte = 0xFF

type keyEncoder struct {
	head []byte
	keys table.PrimaryKeyDefinition
	// base is the table key, set for GSIs only.
	base *table.PrimaryKeyDefinition
}

func newKeyEncoder(tableName, gsiName string, keys table.PrimaryKeyDefinition, base *table.PrimaryKeyDefinition) *keyEncoder {
	head := []byte(tableName)
	if gsiName != "" {
		head = append(head, gsiMarker...)
		head = append(head, gsiName...)
	}
	head = append(head, keySeparator)
	return &keyEncoder{head: head, keys: keys, base: base}
}

// partitionPrefix is shared by every key in the partition.
func (e *keyEncoder) partitionPrefix(pk string) []byte {
	buf := bytes.NewBuffer(append([]byte(nil), e.head...))
	writeString(buf, pk)
	buf.WriteByte(keySeparator)
	return buf.Bytes()
}

// sortBound positions an iterator at sk within the partition.
func sortBound(prefix []byte, sk string) []byte {
	buf := bytes.NewBuffer(append([]byte(nil), prefix...))
	writeString(buf, sk)
	return buf.Bytes()
}

// encodeKey builds the badger key of an item. Cursors carry the same key
// attributes, so it also rebuilds the position a cursor points at.
func (e *keyEncoder) encodeKey(item model.Item) ([]byte, error) {
	pk, sk, err := keyStrings(item, e.keys)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(e.partitionPrefix(pk))
	if e.keys.SortKey.Name != "" {
		writeString(buf, sk)
	}
	if e.base == nil {
		return buf.Bytes(), nil
	}
	tpk, tsk, err := keyStrings(item, *e.base)
	if err != nil {
		return nil, err
	}
	buf.WriteByte(keySeparator)
	writeString(buf, tpk)
	buf.WriteByte(keySeparator)
	if e.base.SortKey.Name != "" {
		writeString(buf, tsk)
	}
	return buf.Bytes(), nil
}

// hasKeys reports whether item carries every key attribute of the index.
func (e *keyEncoder) hasKeys(item model.Item) bool {
	_, _, err := keyStrings(item, e.keys)
	return err == nil
}

// cursor is the key attributes of item, for the index and the table.
func (e *keyEncoder) cursor(item model.Item) (model.Cursor, error) {
	defs := []table.PrimaryKeyDefinition{e.keys}
	if e.base != nil {
		defs = append(defs, *e.base)
	}
	c := make(model.Cursor, 4)
	for _, kd := range defs {
		key, err := kd.ExtractPrimaryKey(item)
		if err != nil {
			return nil, err
		}
		av, err := key.DDB()
		if err != nil {
			return nil, err
		}
		maps.Copy(c, av)
	}
	return c, nil
}

func keyStrings(item model.Item, kd table.PrimaryKeyDefinition) (pk, sk string, err error) {
	pk, err = keyString(item, kd.PartitionKey.Name)
	if err != nil {
		return "", "", err
	}
	if kd.SortKey.Name == "" {
		return pk, "", nil
	}
	sk, err = keyString(item, kd.SortKey.Name)
	if err != nil {
		return "", "", err
	}
	return pk, sk, nil
}

func keyString(item model.Item, field string) (string, error) {
	av, ok := item[field]
	if !ok || av == nil {
		return "", fmt.Errorf("%w %q", ErrMissingKey, field)
	}
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("key attribute %q: expected S, got %T", field, av)
	}
	return s.Value, nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte(keyTypeString)
	buf.Write(escapeBytes([]byte(s)))
}

// decodeSortKey reads the sort key that follows the partition prefix.
func decodeSortKey(rest []byte) (string, error) {
	seg, _, _ := bytes.Cut(rest, []byte{keySeparator})
	if len(seg) == 0 {
		return "", nil
	}
	if seg[0] != keyTypeString {
		return "", fmt.Errorf("unknown key type: %c", seg[0])
	}
	return string(unescapeBytes(seg[1:])), nil
}

// escapeBytes escapes null bytes (0x00) in the input to preserve separator integrity.
// Uses 0x01 0x01 for literal 0x00, and 0x01 0x02 for literal 0x01. Byte order
// is preserved.
func escapeBytes(b []byte) []byte {
	if bytes.IndexByte(b, 0x00) < 0 && bytes.IndexByte(b, 0x01) < 0 {
		return b
	}
	buf := make([]byte, 0, len(b)+4)
	for _, c := range b {
		switch c {
		case 0x00:
			buf = append(buf, 0x01, 0x01)
		case 0x01:
			buf = append(buf, 0x01, 0x02)
		default:
			buf = append(buf, c)
		}
	}
	return buf
}

// unescapeBytes reverses the escaping done by escapeBytes.
func unescapeBytes(b []byte) []byte {
	buf := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == 0x01 && i+1 < len(b) {
			switch b[i+1] {
			case 0x01:
				buf = append(buf, 0x00)
				i++
				continue
			case 0x02:
				buf = append(buf, 0x01)
				i++
				continue
			}
		}
		buf = append(buf, b[i])
	}
	return buf
}

// serializableAV is a gob-encodable representation of AttributeValue.
type serializableAV struct {
	Type  string
	Value any
}

func init() {
	gob.Register(map[string]serializableAV{})
	gob.Register([]serializableAV{})
	gob.Register([]string{})
	gob.Register([][]byte{})
}

// SerializeItem serializes an item to bytes for storage.
func SerializeItem(item model.Item) ([]byte, error) {
	serializable := make(map[string]serializableAV, len(item))
	for k, v := range item {
		sav, err := toSerializable(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		serializable[k] = sav
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(serializable); err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeItem deserializes bytes back to an item.
func DeserializeItem(data []byte) (model.Item, error) {
	var serializable map[string]serializableAV
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&serializable); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	item := make(model.Item, len(serializable))
	for k, v := range serializable {
		av, err := fromSerializable(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		item[k] = av
	}
	return item, nil
}

func toSerializable(av types.AttributeValue) (serializableAV, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return serializableAV{Type: "S", Value: v.Value}, nil
	case *types.AttributeValueMemberN:
		return serializableAV{Type: "N", Value: v.Value}, nil
	case *types.AttributeValueMemberB:
		return serializableAV{Type: "B", Value: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return serializableAV{Type: "BOOL", Value: v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return serializableAV{Type: "NULL", Value: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return serializableAV{Type: "SS", Value: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return serializableAV{Type: "NS", Value: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return serializableAV{Type: "BS", Value: v.Value}, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]serializableAV, len(v.Value))
		for k, val := range v.Value {
			sav, err := toSerializable(val)
			if err != nil {
				return serializableAV{}, err
			}
			m[k] = sav
		}
		return serializableAV{Type: "M", Value: m}, nil
	case *types.AttributeValueMemberL:
		l := make([]serializableAV, len(v.Value))
		for i, val := range v.Value {
			sav, err := toSerializable(val)
			if err != nil {
				return serializableAV{}, err
			}
			l[i] = sav
		}
		return serializableAV{Type: "L", Value: l}, nil
	}
	return serializableAV{}, fmt.Errorf("unsupported attribute value type: %T", av)
}

func fromSerializable(sav serializableAV) (types.AttributeValue, error) {
	var (
		av types.AttributeValue
		ok bool
	)
	switch sav.Type {
	case "S":
		var s string
		s, ok = sav.Value.(string)
		av = &types.AttributeValueMemberS{Value: s}
	case "N":
		var s string
		s, ok = sav.Value.(string)
		av = &types.AttributeValueMemberN{Value: s}
	case "B":
		var b []byte
		b, ok = sav.Value.([]byte)
		av = &types.AttributeValueMemberB{Value: b}
	case "BOOL":
		var b bool
		b, ok = sav.Value.(bool)
		av = &types.AttributeValueMemberBOOL{Value: b}
	case "NULL":
		var b bool
		b, ok = sav.Value.(bool)
		av = &types.AttributeValueMemberNULL{Value: b}
	case "SS":
		var ss []string
		ss, ok = sav.Value.([]string)
		av = &types.AttributeValueMemberSS{Value: ss}
	case "NS":
		var ns []string
		ns, ok = sav.Value.([]string)
		av = &types.AttributeValueMemberNS{Value: ns}
	case "BS":
		var bs [][]byte
		bs, ok = sav.Value.([][]byte)
		av = &types.AttributeValueMemberBS{Value: bs}
	case "M":
		var raw map[string]serializableAV
		if raw, ok = sav.Value.(map[string]serializableAV); !ok {
			break
		}
		m := make(map[string]types.AttributeValue, len(raw))
		for k, v := range raw {
			val, err := fromSerializable(v)
			if err != nil {
				return nil, err
			}
			m[k] = val
		}
		av = &types.AttributeValueMemberM{Value: m}
	case "L":
		var raw []serializableAV
		if raw, ok = sav.Value.([]serializableAV); !ok {
			break
		}
		l := make([]types.AttributeValue, len(raw))
		for i, v := range raw {
			val, err := fromSerializable(v)
			if err != nil {
				return nil, err
			}
			l[i] = val
		}
		av = &types.AttributeValueMemberL{Value: l}
	default:
		return nil, fmt.Errorf("unsupported serialized type %q", sav.Type)
	}
	if !ok {
		return nil, fmt.Errorf("serialized %s holds %T", sav.Type, sav.Value)
	}
	return av, nil
}
