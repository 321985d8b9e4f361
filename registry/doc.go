// Package registry implements interfaces.UserRegistry.
//
// MemoryRegistry keeps records in process memory and is used for tests and
// single-node development. SQLRegistry persists users and the file index in
// the SQL database opened by the database package. Both return deep copies, so
// callers mutate their own *User until they call UpdateUser.
package registry
