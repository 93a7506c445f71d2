/*
Package events is the in-process event bus of guildsync.

The gateways publish structural changes of the guild (a channel was created,
a role was renamed, the guild became ready) and the coordinators publish
pass.completed after every pass. Publishing never blocks: when the queue or a
subscriber buffer is full the event is dropped, because every consumer only
needs to learn that something changed.

# Trigger

Trigger subscribes to the broker and turns workspace events into
synchronization requests:

	role.*                      ──▶ roles + channels
	category.*, channel.*       ──▶ channels
	guild.ready                 ──▶ roles + channels
	pass.completed              ──▶ ignored

Role events request both families because channel grants reference roles.
Ignoring pass.completed keeps a pass from requesting itself.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	trigger := events.NewTrigger(broker, roles, channels)
	trigger.Start()
	defer trigger.Stop()
*/
package events
