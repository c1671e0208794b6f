// Package notifier is the orchestration layer of the delivery engine. The
// Service turns send requests into persisted notifications with a fanned-out
// delivery task set, applying audience resolution, per-recipient channel
// preferences, and per-channel content rendering. The Scheduler runs the
// periodic maintenance tick: lock recovery, retry promotion, and recurrence
// firing.
//
// # Usage
//
//	store := queue.NewMemoryStorage()
//	control := queue.NewControl()
//
//	resolver, err := audience.NewResolver(users)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	svc, err := notifier.NewService(store,
//		resolver,
//		preference.StaticStore{},
//		template.NewResolver(templates),
//		control,
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := svc.Create(ctx, notifier.CreateInput{
//		Title:    "Career fair tomorrow",
//		Body:     "Doors open at 10am in the main hall.",
//		Category: "events",
//		Priority: notification.PriorityNormal,
//		Channels: []notification.Channel{notification.ChannelEmail, notification.ChannelInApp},
//		Audience: notification.AudienceSpec{Kind: notification.AudienceAll},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(res.Tasks, "tasks enqueued")
//
// Run the scheduler alongside the worker pool:
//
//	sched, _ := notifier.NewScheduler(store, svc)
//	go sched.Run(ctx)
package notifier
