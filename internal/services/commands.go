package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/repository"
	"github.com/Dias221467/agency-portal/internal/state"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// clock is swapped in tests.
var clock = time.Now

func tableOf[T models.Row]() string {
	var zero T
	return models.TableName(zero)
}

// Create inserts Row and merges the stored row.
type Create[T models.Row] struct {
	Row T
}

func (c *Create[T]) Describe() (string, string) {
	return entityName(tableOf[T]()), "created"
}

// Validate fills server defaults on Row and checks actor may create it.
// Ids are assigned by the remote; one sent by the caller is dropped.
func (c *Create[T]) Validate(s state.State, actor models.User) error {
	if !c.Row.Key().IsZero() {
		row, err := withoutID(c.Row)
		if err != nil {
			return invalid("%v", err)
		}
		c.Row = row
	}
	prepared, err := prepareInsert(s, actor, c.Row, clock())
	if err != nil {
		return err
	}
	c.Row = prepared.(T)
	return nil
}

func (c *Create[T]) Execute(ctx context.Context, r *repository.Remote, _ state.State) ([]state.Delta, error) {
	table, name := repository.TableFor[T](r)
	stored, err := table.Insert(ctx, &c.Row)
	if err != nil {
		return nil, err
	}
	return []state.Delta{state.Inserted(name, *stored)}, nil
}

// Update sets Fields (snake_case columns) on the row with ID.
type Update[T models.Row] struct {
	ID     primitive.ObjectID
	Fields bson.M
}

func (c *Update[T]) Describe() (string, string) {
	return entityName(tableOf[T]()), "updated"
}

func (c *Update[T]) Target() (string, primitive.ObjectID) {
	return tableOf[T](), c.ID
}

func (c *Update[T]) Validate(s state.State, actor models.User) error {
	if len(c.Fields) == 0 {
		return invalid("nothing to update")
	}
	if _, ok := c.Fields["_id"]; ok {
		return invalid("id cannot change")
	}
	before, ok := state.Find[T](s, c.ID)
	if !ok {
		return ErrNotFound
	}
	after, err := withFields(before, c.Fields)
	if err != nil {
		return invalid("%v", err)
	}
	return checkUpdate(s, actor, before, after, c.Fields)
}

func (c *Update[T]) Execute(ctx context.Context, r *repository.Remote, _ state.State) ([]state.Delta, error) {
	table, name := repository.TableFor[T](r)
	updated, err := table.Update(ctx, c.ID, c.Fields)
	if err != nil {
		return nil, notFound(err)
	}
	return []state.Delta{state.Updated(name, *updated)}, nil
}

// Delete removes the row with ID.
type Delete[T models.Row] struct {
	ID primitive.ObjectID
}

func (c *Delete[T]) Describe() (string, string) {
	return entityName(tableOf[T]()), "deleted"
}

func (c *Delete[T]) Target() (string, primitive.ObjectID) {
	return tableOf[T](), c.ID
}

// Validate refuses to delete the last remaining admin before any remote call is made.
func (c *Delete[T]) Validate(s state.State, actor models.User) error {
	row, ok := state.Find[T](s, c.ID)
	if !ok {
		return ErrNotFound
	}
	return checkDelete(s, actor, row)
}

func (c *Delete[T]) Execute(ctx context.Context, r *repository.Remote, _ state.State) ([]state.Delta, error) {
	table, name := repository.TableFor[T](r)
	if err := table.Delete(ctx, c.ID); err != nil {
		return nil, notFound(err)
	}
	return []state.Delta{state.Deleted(name, c.ID)}, nil
}

// DeleteUser is the user deletion command, guarded against removing the last admin.
func DeleteUser(id primitive.ObjectID) Command {
	return &Delete[models.User]{ID: id}
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
