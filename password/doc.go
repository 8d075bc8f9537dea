// Package password hashes passwords with argon2id and verifies both argon2id
// and legacy bcrypt hashes.
//
// New hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.NeedsUpgrade] reports bcrypt hashes and argon2id hashes with weaker
// parameters, so the caller can re-hash on the next successful login.
//
// This package never stores, retrieves or logs passwords.
package password
