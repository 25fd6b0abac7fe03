package redis

import (
	"context"
	"reflect"

	"github.com/redis/go-redis/v9"
)

// structFields maps struct fields to their redis tag names, keeping pointer
// fields as-is so nil ones can be told apart.
func (r repo) structFields(value any) map[string]any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	fields := make(map[string]any, v.NumField())
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("redis")
		if tag == "" || tag == "-" {
			continue
		}

		fields[tag] = v.Field(i).Interface()
	}

	return fields
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
