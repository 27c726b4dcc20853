// Package storage publishes extracted thumbnails. The local backend leaves
// files in the processed directory; the s3 backend uploads them with the AWS
// SDK and records s3:// URIs.
package storage
