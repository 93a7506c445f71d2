/*
Package types defines the data model shared by the gateways, the coordinators
and the strategies.

An Entity is a handle to one live object of the guild: a category, a text
channel, a voice channel or a role. Handles are re-read on every pass and must
not be kept across passes. Position is the display order within the entity's
kind, zero at the top, whatever numbering the platform uses.

Settings is the mutable part of an entity. Strategies build the desired
Settings and the coordinator compares them with Entity.Settings to drop
no-op updates.

A Grant is a per-channel permission override for a role or a member, with
allow and deny bitsets in the platform's Permissions encoding.

PassReport summarizes one pass. It is what the storage package records and
what the admin API returns.
*/
package types
