//go:build js && wasm

package main

import (
	"fmt"
	"syscall/js"

	"github.com/foundrydata/foundrygen/pkg/playground"
)

// promisify wraps a Go function to return a JavaScript Promise
func promisify(fn func(args []js.Value) (string, error)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		handler := js.FuncOf(func(this js.Value, promiseArgs []js.Value) any {
			resolve := promiseArgs[0]
			reject := promiseArgs[1]

			go func() {
				result, err := fn(args)
				if err != nil {
					errorConstructor := js.Global().Get("Error")
					reject.Invoke(errorConstructor.New(err.Error()))
					return
				}
				resolve.Invoke(result)
			}()

			return nil
		})

		promiseConstructor := js.Global().Get("Promise")
		return promiseConstructor.New(handler)
	})
}

// optionalArg returns args[i] as a string, or "" when it is absent or
// undefined.
func optionalArg(args []js.Value, i int) string {
	if i >= len(args) || args[i].IsUndefined() || args[i].IsNull() {
		return ""
	}
	return args[i].String()
}

func main() {
	js.Global().Set("GenerateInstances", promisify(func(args []js.Value) (string, error) {
		if len(args) < 1 || len(args) > 2 {
			return "", fmt.Errorf("GenerateInstances: expected 1 or 2 args (schema, request), got %v", len(args))
		}
		return playground.GenerateJSON(args[0].String(), optionalArg(args, 1))
	}))

	js.Global().Set("GenerateFromOpenAPI", promisify(func(args []js.Value) (string, error) {
		if len(args) < 1 || len(args) > 2 {
			return "", fmt.Errorf("GenerateFromOpenAPI: expected 1 or 2 args (oasYAML, request), got %v", len(args))
		}
		return playground.GenerateOpenAPI(args[0].String(), optionalArg(args, 1))
	}))

	// Keep the program running
	<-make(chan bool)
}
