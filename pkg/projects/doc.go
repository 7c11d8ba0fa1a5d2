// Package projects implements the project aggregate and its membership
// lifecycle: creation, partial update, member invitation with role
// validation, role changes, and removal.
package projects
