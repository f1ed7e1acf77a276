package servertype

// Type is a closed enumeration of game-server flavors the bridge mod reports.
type Type string

const (
	Vanilla  Type = "vanilla"
	Spigot   Type = "spigot"
	Fabric   Type = "fabric"
	Forge    Type = "forge"
	Neoforge Type = "neoforge"
	Mcdr     Type = "mcdr"
)

// Optional player-attribute fields a flavor may supply alongside events.
const (
	FieldNickname   = "nickname"
	FieldUUID       = "uuid"
	FieldBlockX     = "block_x"
	FieldBlockY     = "block_y"
	FieldBlockZ     = "block_z"
	FieldIsOp       = "is_op"
	FieldDimension  = "dimension"
	FieldCoordinate = "coordinate"
)

// Descriptor names the wire events one flavor emits and the player fields it
// is expected to supply. Absent fields must be treated as null by consumers.
type Descriptor struct {
	Type         Type
	ChatEvent    string
	JoinEvent    string
	QuitEvent    string
	DeathEvent   string
	CommandEvent string
	playerFields map[string]bool
}

// HasDeath reports whether the flavor emits a death event at all.
func (d Descriptor) HasDeath() bool { return d.DeathEvent != "" }

// Supports reports whether the flavor supplies the named player field.
func (d Descriptor) Supports(field string) bool { return d.playerFields[field] }

func fields(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var registry = map[Type]Descriptor{
	Vanilla: {
		Type:         Vanilla,
		ChatEvent:    "MinecraftPlayerChatEvent",
		JoinEvent:    "MinecraftPlayerJoinEvent",
		QuitEvent:    "MinecraftPlayerQuitEvent",
		playerFields: fields(FieldNickname),
	},
	Spigot: {
		Type:         Spigot,
		ChatEvent:    "AsyncPlayerChatEvent",
		JoinEvent:    "PlayerJoinEvent",
		QuitEvent:    "PlayerQuitEvent",
		DeathEvent:   "PlayerDeathEvent",
		CommandEvent: "PlayerCommandPreprocessEvent",
		playerFields: fields(FieldNickname),
	},
	Fabric: {
		Type:         Fabric,
		ChatEvent:    "ServerMessageEvent",
		JoinEvent:    "ServerPlayConnectionJoinEvent",
		QuitEvent:    "ServerPlayConnectionDisconnectEvent",
		DeathEvent:   "ServerLivingEntityAfterDeathEvent",
		CommandEvent: "ServerCommandMessageEvent",
		playerFields: fields(FieldNickname, FieldBlockX, FieldBlockY, FieldBlockZ),
	},
	Forge: {
		Type:         Forge,
		ChatEvent:    "ServerChatEvent",
		JoinEvent:    "PlayerLoggedInEvent",
		QuitEvent:    "PlayerLoggedOutEvent",
		playerFields: fields(FieldNickname, FieldBlockX, FieldBlockY, FieldBlockZ),
	},
	Neoforge: {
		Type:         Neoforge,
		ChatEvent:    "NeoServerChatEvent",
		JoinEvent:    "NeoPlayerLoggedInEvent",
		QuitEvent:    "NeoPlayerLoggedOutEvent",
		CommandEvent: "NeoCommandEvent",
		playerFields: fields(FieldNickname, FieldBlockX, FieldBlockY, FieldBlockZ),
	},
	Mcdr: {
		Type:         Mcdr,
		ChatEvent:    "MCDRChat",
		JoinEvent:    "MCDRJoin",
		QuitEvent:    "MCDRQuit",
		DeathEvent:   "MCDRDeath",
		CommandEvent: "MCDRPlayer_command",
		playerFields: fields(FieldNickname, FieldUUID, FieldIsOp, FieldDimension, FieldCoordinate),
	},
}

// Resolve maps a wire type tag to its descriptor. Unknown tags fall back to
// the vanilla descriptor so frames from unrecognized flavors stay processable.
func Resolve(tag string) Descriptor {
	if d, ok := registry[Type(tag)]; ok {
		return d
	}
	return registry[Vanilla]
}
