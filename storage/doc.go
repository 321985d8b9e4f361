// Package storage provides the driver catalog and the storage drivers the
// gateway provisions connections against.
//
// Every driver allocates a per-user namespace when a connection is registered
// and releases it when the connection is unregistered:
//
//   - File system driver for local development and testing
//   - S3-compatible driver for cloud deployments
//   - IPFS driver backed by the node's mutable file system (MFS)
//   - Vault driver storing per-user KV v2 entries
//
// # Driver URI Format
//
// Drivers are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/gateway/data/
//   - s3://ACCESS:SECRET@bucket-name/prefix/?region=us-west-2&endpoint=http://minio:9000
//   - ipfs://127.0.0.1:5001/gateway-root
//   - vault://vault.example.com:8200/secret/gateway?token=...&tls=true
//
// # Catalog
//
// The catalog is read from a YAML file listing driver id, display name,
// auto-registration flag and URI. Catalog order is preserved because the
// provisioner uses it to pick the default connection.
//
// # Namespaces
//
// Drivers key the per-user namespace by the user's signer address, which is
// validated to be a single clean path element before it touches a backend.
package storage
