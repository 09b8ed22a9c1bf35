// Package e2e exercises the repositories and services together against a
// disposable PostgreSQL database named by PECSA_TEST_DATABASE_URL.
package e2e
