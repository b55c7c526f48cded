// Package password hashes and verifies user passwords with Argon2id.
//
// Encoded hashes use the PHC string format:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
//
// Hashing never applies the registration policy; callers that accept new
// passwords from users run Config.Validate first.
package password
