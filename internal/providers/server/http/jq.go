package http

import (
	"strings"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/dataeng-tools/airmeta/faults"
)

var jqCodeCache sync.Map

// evalJQ runs a jq expression against a decoded payload. Expressions are
// fixed per resource kind, so compiled programs are cached for the life of
// the process.
func evalJQ(expression string, payload any) (any, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return payload, nil
	}

	code, err := cachedJQCode(trimmed)
	if err != nil {
		return nil, faults.NewTypedError(faults.InternalError, "invalid jq expression", err)
	}

	iterator := code.Run(payload)
	results := make([]any, 0, 1)
	for {
		value, ok := iterator.Next()
		if !ok {
			break
		}
		if valueErr, isErr := value.(error); isErr {
			return nil, faults.NewTypedError(faults.RemoteError, "response shape did not match jq expression", valueErr)
		}
		results = append(results, value)
	}

	if len(results) == 0 {
		return nil, nil
	}
	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

func cachedJQCode(expression string) (*gojq.Code, error) {
	if cached, ok := jqCodeCache.Load(expression); ok {
		if typed, ok := cached.(*gojq.Code); ok && typed != nil {
			return typed, nil
		}
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, err
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, err
	}

	actual, _ := jqCodeCache.LoadOrStore(expression, code)
	typed, _ := actual.(*gojq.Code)
	if typed == nil {
		return code, nil
	}
	return typed, nil
}
