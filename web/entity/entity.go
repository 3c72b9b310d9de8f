// Package entity defines the JSON envelope used by AJAX responses.
package entity

type Msg struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Obj     any    `json:"obj,omitempty"`
}
