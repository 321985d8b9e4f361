/*
Package api defines the wire surface of the identity gateway: route paths,
request and response types, and the HTTP server configuration shared by the
server binary and the clients subpackage.

# User API

Mounted under UserAPIPrefix. Every route expects an "Authorization: bearer
<token>" header carrying an ES256K-R signed token.

  - GET  /validate-token - Strict credential check, 204 on success
  - POST /login - Create or refresh the caller's record, 204 on success
  - POST /register - Create the caller's record and provision drivers, 204 on success
  - POST /unregister - Tear down every connection and delete the record, 204 on success
  - GET  /gdpr - Full user record as JSON
  - GET  /list-files?global=1 - File index of the user's bucket, or every reachable bucket

# App DB API

Mounted under AppDBPrefix. Every route requires the authKey query parameter.

  - GET    /tables - Table names
  - POST   /tables - Create a table, body {"name": "..."}
  - DELETE /tables/{table} - Drop a table
  - GET    /tables/{table}/data - Every row
  - GET    /tables/{table}/data/{key} - One row value
  - PUT    /tables/{table}/data/{key} - Replace one row value with the JSON body
  - DELETE /tables/{table}/data/{key} - Delete one row
*/
package api
