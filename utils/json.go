package utils

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"
)

type JSONBufferPool struct {
	pool sync.Pool
}

func (p *JSONBufferPool) Get() *bytes.Buffer {
	if buf := p.pool.Get(); buf != nil {
		return buf.(*bytes.Buffer)
	}
	return bytes.NewBuffer(make([]byte, 0, 1024))
}

func (p *JSONBufferPool) Put(buf *bytes.Buffer) {
	buf.Reset()
	if buf.Cap() < 16*1024 {
		p.pool.Put(buf)
	}
}

var jsonPool = &JSONBufferPool{}

var nullJSON = []byte("null")

func MarshalToBuffer(data interface{}, buf *bytes.Buffer) error {
	buf.Reset()
	encoder := sonic.ConfigDefault.NewEncoder(buf)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	// Encode terminates every document with a newline.
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
	return nil
}

func Marshal(data interface{}) ([]byte, error) {
	buf := jsonPool.Get()
	defer jsonPool.Put(buf)

	if err := MarshalToBuffer(data, buf); err != nil {
		return nil, err
	}

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

func Unmarshal[T any](data []byte, target *T) error {
	return sonic.ConfigDefault.Unmarshal(data, target)
}

// MarshalOrderedObject writes values as one JSON object whose fields follow keys.
// A value that cannot be encoded is written as null and reported to onSkip,
// so one bad field never blocks the rest of the object.
func MarshalOrderedObject(keys []string, values map[string]interface{}, onSkip func(key string, err error)) ([]byte, error) {
	buf := jsonPool.Get()
	defer jsonPool.Put(buf)

	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		encodedKey, err := sonic.ConfigDefault.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal key %q: %w", key, err)
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')

		encodedValue, err := sonic.ConfigDefault.Marshal(values[key])
		if err != nil {
			if onSkip != nil {
				onSkip(key, err)
			}
			encodedValue = nullJSON
		}
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// EachObjectField walks the top-level fields of a JSON object in document order.
func EachObjectField(data []byte, fn func(key string, value interface{})) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json document")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("json document is %s, not an object", root.Type)
	}

	var walkErr error
	root.ForEach(func(key, value gjson.Result) bool {
		var decoded interface{}
		if err := sonic.ConfigDefault.UnmarshalFromString(value.Raw, &decoded); err != nil {
			walkErr = fmt.Errorf("failed to decode field %q: %w", key.String(), err)
			return false
		}
		fn(key.String(), decoded)
		return true
	})

	return walkErr
}

func UnmarshalConfig[T any](config interface{}, target *T) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if typed, ok := config.(*T); ok {
		*target = *typed
		return nil
	}

	configBytes, err := sonic.ConfigDefault.Marshal(config)
	if err != nil {
		return err
	}

	return sonic.ConfigDefault.Unmarshal(configBytes, target)
}
