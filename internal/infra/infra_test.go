package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryMap(entries []Entry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return m
}

func TestIsConfigFile(t *testing.T) {
	cases := map[string]bool{
		"/r/Dockerfile":          true,
		"/r/api.dockerfile":      true,
		"/r/.env":                true,
		"/r/.env.example":        true,
		"/r/docker-compose.yml":  true,
		"/r/k8s/deploy.yaml":     true,
		"/r/netlify.toml":        true,
		"/r/db/schema.sql":       true,
		"/r/pnpm-lock.yaml":      false,
		"/r/src/index.ts":        false,
		"/r/certs/server.key":    false,
		"/r/credentials.yaml":    false,
		"/r/package.json":        false,
	}
	for path, want := range cases {
		assert.Equal(t, want, IsConfigFile(path), path)
	}
}

func TestExtractDockerfile(t *testing.T) {
	content := `FROM golang:1.23-alpine AS builder
WORKDIR /app
ARG VERSION=dev
RUN go build -o server .

FROM alpine:3.19
ENV PORT=8080
ENV JWT_SECRET=supersecret
EXPOSE 8080 443/tcp
CMD ["./server", "--flag"]
`
	res, err := Extract("/r/Dockerfile", []byte(content))
	require.NoError(t, err)
	m := entryMap(res.Entries)
	assert.Equal(t, "golang:1.23-alpine", m["stage.builder"])
	assert.Equal(t, "alpine:3.19", m["stage[1]"])
	assert.Equal(t, "/app", m["workdir"])
	assert.Equal(t, "dev", m["arg.VERSION"])
	assert.Equal(t, "8080", m["env.PORT"])
	assert.Equal(t, redacted, m["env.JWT_SECRET"])
	assert.Equal(t, "./server --flag", m["cmd"])
	assert.Contains(t, res.Summary, "alpine:3.19")
	for _, e := range res.Entries {
		assert.Equal(t, KindDockerfile, e.Kind)
	}
}

func TestExtractEnv(t *testing.T) {
	content := "# sample\nDATABASE_URL=postgres://localhost/app\nAPI_KEY=\"abc\"\nexport PORT=3000\n"
	res, err := Extract("/r/.env.example", []byte(content))
	require.NoError(t, err)
	m := entryMap(res.Entries)
	assert.Equal(t, "postgres://localhost/app", m["DATABASE_URL"])
	assert.Equal(t, "3000", m["PORT"])
	assert.Equal(t, redacted, m["API_KEY"])
	assert.Equal(t, "environment template with 3 variables", res.Summary)
}

func TestExtractCompose(t *testing.T) {
	content := `services:
  api:
    build: ./api
    ports: ["3000:3000"]
    environment:
      - NODE_ENV=production
    depends_on: [db]
  db:
    image: postgres:16
    environment:
      POSTGRES_DB: app
`
	res, err := Extract("/r/docker-compose.yml", []byte(content))
	require.NoError(t, err)
	m := entryMap(res.Entries)
	assert.Equal(t, "./api", m["services.api.build"])
	assert.Equal(t, "3000:3000", m["services.api.ports"])
	assert.Equal(t, "production", m["services.api.environment.NODE_ENV"])
	assert.Equal(t, "db", m["services.api.depends_on"])
	assert.Equal(t, "postgres:16", m["services.db.image"])
	assert.Equal(t, "app", m["services.db.environment.POSTGRES_DB"])
	assert.Equal(t, "docker compose file with 2 services", res.Summary)
}

func TestExtractK8sManifest(t *testing.T) {
	content := `apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
spec:
  replicas: 2
---
apiVersion: v1
kind: Service
metadata:
  name: web
`
	res, err := Extract("/r/k8s/web.yaml", []byte(content))
	require.NoError(t, err)
	m := entryMap(res.Entries)
	assert.Equal(t, "2", m["Deployment/web.spec.replicas"])
	assert.Equal(t, "Service", m["Service/web.kind"])
	assert.Equal(t, "Kubernetes manifest: Deployment, Service", res.Summary)
}

func TestExtractTOML(t *testing.T) {
	content := `[build]
command = "npm run build"
publish = "dist"

[database]
password = "hunter2"
ports = [5432, 5433]
`
	res, err := Extract("/r/netlify.toml", []byte(content))
	require.NoError(t, err)
	m := entryMap(res.Entries)
	assert.Equal(t, "npm run build", m["build.command"])
	assert.Equal(t, "dist", m["build.publish"])
	assert.Equal(t, redacted, m["database.password"])
	assert.Equal(t, "5432,5433", m["database.ports"])
	assert.Equal(t, "TOML manifest: build, database", res.Summary)
}

func TestExtractSQL(t *testing.T) {
	content := `-- users
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY,
  email VARCHAR(255) NOT NULL,
  created_at TIMESTAMP,
  UNIQUE (email)
);
create table "orders" (id int, user_id int references users(id));
`
	res, err := Extract("/r/db/schema.sql", []byte(content))
	require.NoError(t, err)
	m := entryMap(res.Entries)
	assert.Equal(t, "id,email,created_at", m["users"])
	assert.Equal(t, "id,user_id", m["orders"])
	assert.Equal(t, "SQL schema with 2 tables", res.Summary)
}

func TestExtractSQLTableOptions(t *testing.T) {
	content := `CREATE TABLE users (
  id INT NOT NULL AUTO_INCREMENT,
  name VARCHAR(64),
  PRIMARY KEY (id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE orders (id INT, user_id INT);
`
	res, err := Extract("/r/db/dump.sql", []byte(content))
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, Entry{Key: "users", Value: "id,name", Kind: KindSQLTable}, res.Entries[0])
	assert.Equal(t, Entry{Key: "orders", Value: "id,user_id", Kind: KindSQLTable}, res.Entries[1])
	assert.Equal(t, "SQL schema with 2 tables", res.Summary)
}

func TestExtractErrors(t *testing.T) {
	_, err := Extract("/r/src/a.ts", []byte("x"))
	assert.Error(t, err)

	_, err = Extract("/r/bad.toml", []byte("[unterminated"))
	assert.Error(t, err)
}
