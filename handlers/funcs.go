package handlers

import (
	"fmt"
	"html/template"
	"reflect"
	"time"

	"github.com/niconiahi/olga.media/internal/stringutil"
)

// TemplateFuncs are the functions available to every page.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"slice_length": func(v interface{}) int {
			val := reflect.ValueOf(v)
			if val.Kind() != reflect.Slice {
				panic(fmt.Errorf("expected input to be a slice"))
			}
			return val.Len()
		},
		"first_of": func(a ...interface{}) string {
			for _, e := range a {
				if s := fmt.Sprintf("%v", e); s != "" {
					return s
				}
			}

			return ""
		},
		"format_time": func(t time.Time) string {
			return t.Format("02/01/2006 15:04")
		},
		"format_time_null": func(t *time.Time) string {
			if t == nil {
				return ""
			}

			return t.Format("02/01/2006 15:04")
		},
		"plural":          stringutil.Plural,
		"truncate":        stringutil.Truncate,
		"pascal_to_snake": stringutil.PascalToSnake,
		"pascal_to_title": stringutil.PascalToTitle,
		"has": func(m map[int]bool, id int) bool {
			return m[id]
		},
		"make_map": func(args ...interface{}) map[string]interface{} {
			m := make(map[string]interface{})

			for i := 0; i < len(args)/2; i++ {
				kv := args[i*2]
				vv := args[i*2+1]

				k, ok := kv.(string)
				if !ok {
					panic(fmt.Errorf("key value should be string; was instead %T", kv))
				}

				m[k] = vv
			}

			return m
		},
	}
}
