package game

const imgBase = "https://img.icons8.com/color/96"

func opt(id, name, letter, img string, slot Slot) Option {
	return Option{ID: id, Name: name, Letter: letter, ImageURL: imgBase + "/" + img, Slot: slot}
}

// BuiltinLevels returns the offline question set used when neither the
// backend nor the local cache has levels.
func BuiltinLevels() []Level {
	return []Level{
		{
			ID: "en-a", Level: 1, Epoch: 0, Target: "A",
			Prompt:   "Find the item that starts with A",
			AudioURL: "/audio/en_a.wav",
			Options: []Option{
				opt("apple", "Apple", "A", "apple.png", SlotTop),
				opt("ball", "Ball", "B", "beach-ball.png", SlotBottom),
				opt("cat", "Cat", "C", "cat.png", SlotLeft),
				opt("dog", "Dog", "D", "dog.png", SlotRight),
			},
		},
		{
			ID: "en-f", Level: 1, Epoch: 1, Target: "F",
			Prompt:   "Find the item that starts with F",
			AudioURL: "/audio/en_f.wav",
			Options: []Option{
				opt("fish", "Fish", "F", "fish.png", SlotTop),
				opt("house", "House", "H", "home.png", SlotBottom),
				opt("sun", "Sun", "S", "summer.png", SlotLeft),
				opt("car", "Car", "C", "car.png", SlotRight),
			},
		},
		{
			ID: "en-m", Level: 1, Epoch: 2, Target: "M",
			Prompt:   "Find the item that starts with M",
			AudioURL: "/audio/en_m.wav",
			Options: []Option{
				opt("monkey", "Monkey", "M", "mango.png", SlotTop),
				opt("ball", "Ball", "B", "beach-ball.png", SlotBottom),
				opt("banana", "Banana", "B", "banana.png", SlotLeft),
				opt("elephant", "Elephant", "E", "elephant.png", SlotRight),
			},
		},
		{
			ID: "np-ka", Level: 2, Epoch: 0, Target: "K",
			Prompt:   "Find the item that starts with Ka",
			AudioURL: "/audio/np_ka.wav",
			Options: []Option{
				opt("kukur", "Dog", "K", "dog.png", SlotTop),
				opt("biralo", "Cat", "B", "cat.png", SlotBottom),
				opt("syau", "Apple", "S", "apple.png", SlotLeft),
				opt("machha", "Fish", "M", "fish.png", SlotRight),
			},
		},
		{
			ID: "np-ga", Level: 2, Epoch: 1, Target: "G",
			Prompt:   "Find the item that starts with Ga",
			AudioURL: "/audio/np_ga.wav",
			Options: []Option{
				opt("ghar", "House", "G", "home.png", SlotTop),
				opt("gaadi", "Car", "Ga", "car.png", SlotBottom),
				opt("bhakunda", "Ball", "Bh", "beach-ball.png", SlotLeft),
				opt("surya", "Sun", "S", "summer.png", SlotRight),
			},
		},
	}
}
