package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"batchrpc/registry"
	"batchrpc/wire"
)

// demoManifest exposes a few routes for manual testing:
//
//	demo.echo    - returns its input unchanged
//	demo.delay   - sleeps {ms} then returns {slept: ms}
//	users.get    - looks up a user by {id}
//	users.list   - lists all users
func demoManifest() registry.Manifest {
	return registry.Manifest{
		"demo":  &demoRouter{},
		"users": newUserRouter(),
	}
}

type demoRouter struct{}

func (d *demoRouter) Routes() map[string]registry.Route {
	return map[string]registry.Route{
		"echo":  {Handler: d.echo},
		"delay": {Handler: d.delay},
	}
}

func (d *demoRouter) echo(ctx context.Context, input json.RawMessage, meta *registry.CallContext) (interface{}, error) {
	return input, nil
}

func (d *demoRouter) delay(ctx context.Context, input json.RawMessage, meta *registry.CallContext) (interface{}, error) {
	var params struct {
		Ms int `json:"ms"`
	}
	if input != nil {
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, wire.NewError(wire.CodeBadRequest, wire.NameBadRequest, "delay expects {ms}")
		}
	}

	select {
	case <-time.After(time.Duration(params.Ms) * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return map[string]int{"slept": params.Ms}, nil
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userRouter struct {
	users map[string]user
}

func newUserRouter() *userRouter {
	return &userRouter{
		users: map[string]user{
			"1": {ID: "1", Name: "Ada"},
			"2": {ID: "2", Name: "Grace"},
		},
	}
}

func (u *userRouter) Routes() map[string]registry.Route {
	return map[string]registry.Route{
		"get":  {Handler: u.get},
		"list": {Handler: u.list},
	}
}

func (u *userRouter) get(ctx context.Context, input json.RawMessage, meta *registry.CallContext) (interface{}, error) {
	var params struct {
		ID string `json:"id"`
	}
	if input == nil {
		return nil, wire.NewError(wire.CodeBadRequest, wire.NameBadRequest, "get expects {id}")
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, wire.NewError(wire.CodeBadRequest, wire.NameBadRequest, "get expects {id}")
	}

	usr, ok := u.users[params.ID]
	if !ok {
		return nil, fmt.Errorf("no user with id %s", params.ID)
	}
	return usr, nil
}

func (u *userRouter) list(ctx context.Context, input json.RawMessage, meta *registry.CallContext) (interface{}, error) {
	out := make([]user, 0, len(u.users))
	for _, usr := range u.users {
		out = append(out, usr)
	}
	return out, nil
}
