// Package program implements the blog record program: InitUser and
// CreatePost executed against slots in the store.
//
// Records live at derived addresses (see package address), so a user's
// profile and each of their posts are found by recomputing where they must
// be. Every instruction runs inside one store transaction: it either
// commits all of its writes or none of them.
//
// CreatePost ordering:
//
//  1. verify the signature and load the user record
//  2. check user.authority == signer
//  3. advance both counters (fails closed on overflow)
//  4. derive the post address from (authority, last_post_id)
//  5. create the post slot, paid by the signer
//  6. write the post, then the updated user record
//
// A second post at the same id is impossible: its slot is already occupied,
// and slot creation fails with an address collision.
package program
