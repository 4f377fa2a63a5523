package domain

import "errors"

var (
	// ErrEmptyContent is returned when a post, comment or profile field has no
	// usable content after trimming.
	ErrEmptyContent = errors.New("content is empty")
	// ErrNotFound is returned when no post or user matches the given id.
	ErrNotFound = errors.New("not found")
	// ErrNotAuthor is returned when a caller tries to edit or delete a post
	// they did not create.
	ErrNotAuthor = errors.New("not the author")
	// ErrDuplicateIdentifier is returned when registering an identifier that
	// is already taken.
	ErrDuplicateIdentifier = errors.New("identifier already registered")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is returned when an operation requires a signed-in user.
	ErrUnauthenticated = errors.New("not authenticated")
)
