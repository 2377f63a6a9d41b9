package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Row is implemented by every entity stored in a remote table.
type Row interface {
	Key() primitive.ObjectID
}

var ErrUnknownField = errors.New("unknown field")

// Columns maps application (JSON) field names of T to remote (BSON) column names.
// The id field and fields hidden from JSON are not patchable and left out.
func Columns[T any]() map[string]string {
	var zero T
	t := reflect.TypeOf(zero)
	cols := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		jsonName := tagName(f.Tag.Get("json"))
		bsonName := tagName(f.Tag.Get("bson"))
		if jsonName == "" || jsonName == "-" || bsonName == "" || bsonName == "_id" {
			continue
		}
		cols[jsonName] = bsonName
	}
	return cols
}

// PatchFrom turns a partial camelCase JSON payload into a snake_case $set document.
// Values are decoded through T so ids, dates and enums keep their column types.
func PatchFrom[T any](body []byte) (bson.M, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid patch payload: %w", err)
	}

	var typed T
	if err := json.Unmarshal(body, &typed); err != nil {
		return nil, fmt.Errorf("invalid patch payload: %w", err)
	}

	cols := Columns[T]()
	v := reflect.ValueOf(typed)
	t := v.Type()

	patch := bson.M{}
	for key := range raw {
		col, ok := cols[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
		for i := 0; i < t.NumField(); i++ {
			if tagName(t.Field(i).Tag.Get("json")) == key {
				patch[col] = v.Field(i).Interface()
				break
			}
		}
	}
	return patch, nil
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}
