// Package api implements the backup service's HTTP surface: health,
// version, schema, and the signed backup CRUD routes, dispatched through a
// single http.ServeMux per the teacher's preference for stdlib routing over
// a third-party router.
package api
