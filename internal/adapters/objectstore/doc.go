// Package objectstore provides upload storages backed by remote object stores:
// S3 compatible buckets, Azure Blob containers and postgres large objects
package objectstore
