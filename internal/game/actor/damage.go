package actor

import "github.com/cory-johannsen/muddy/internal/game/dice"

// missDie is the size of the miss roll: a roll of 0 on a missDie-sided
// die is a miss, giving the documented 1-in-5 (20%) miss probability.
const missDie = 5

// skillModifiers maps skill identifiers to flat attack bonuses. Unknown
// skills contribute no bonus rather than failing the attack.
var skillModifiers = map[string]int{
	"punch": 0,
	"kick":  1,
	"bite":  1,
	"claw":  1,
	"slash": 2,
}

// SkillModifier returns the flat attack bonus for a skill identifier.
// Unknown skills return 0.
func SkillModifier(skill string) int {
	return skillModifiers[skill]
}

// Damage computes the damage attacker deals to defender with the given
// skill. A return of 0 signals a miss or a fully absorbed hit. On a hit
// the amount is attacker.Attack + SkillModifier(skill) - defender.Defense,
// floored at 0; misses occur with probability 1/missDie.
//
// Damage only computes; callers apply the result via ApplyDamage so that
// the actor's own mutex serializes the mutation.
//
// Precondition: attacker, defender, and src must be non-nil.
// Postcondition: Returns >= 0.
func Damage(attacker, defender *Actor, skill string, src dice.Source) int {
	if src.Intn(missDie) == 0 {
		return 0
	}
	amount := attacker.Stats().Attack + SkillModifier(skill) - defender.Stats().Defense
	if amount < 0 {
		amount = 0
	}
	return amount
}
